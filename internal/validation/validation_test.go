package validation

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "supersecret",
			wantErr:  false,
		},
		{
			name:     "exactly eight characters",
			password: "12345678",
			wantErr:  false,
		},
		{
			name:     "too short",
			password: "short",
			wantErr:  true,
		},
		{
			name:     "empty",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		wantErr     bool
	}{
		{
			name:        "valid name",
			displayName: "Noah",
			wantErr:     false,
		},
		{
			name:        "two characters",
			displayName: "Jo",
			wantErr:     false,
		},
		{
			name:        "single character",
			displayName: "J",
			wantErr:     true,
		},
		{
			name:        "empty",
			displayName: "",
			wantErr:     true,
		},
		{
			name:        "whitespace only",
			displayName: "   ",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.displayName)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.displayName, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRedeemCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{
			name:    "referral style code",
			code:    "ABCD-EFGH",
			wantErr: false,
		},
		{
			name:    "digits only",
			code:    "1234",
			wantErr: false,
		},
		{
			name:    "maximum length",
			code:    "ABCDEFGH12345678",
			wantErr: false,
		},
		{
			name:    "too short",
			code:    "ABC",
			wantErr: true,
		},
		{
			name:    "too long",
			code:    "ABCDEFGH123456789",
			wantErr: true,
		},
		{
			name:    "lowercase not normalized",
			code:    "abcd-efgh",
			wantErr: true,
		},
		{
			name:    "leading dash",
			code:    "-ABCDEF",
			wantErr: true,
		},
		{
			name:    "trailing dash",
			code:    "ABCDEF-",
			wantErr: true,
		},
		{
			name:    "empty",
			code:    "",
			wantErr: true,
		},
		{
			name:    "embedded space",
			code:    "ABCD EFGH",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRedeemCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRedeemCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}
