package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. With no from-address
// configured the service is created disabled and every send becomes a no-op.
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)
	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcomeEmail sends the welcome email for a new parent account,
// including the family's shareable referral code.
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName, referralCode string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	subject := "Welcome to GodlyKids!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f4a024; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #fdf8ef; padding: 30px; border-radius: 0 0 5px 5px; }
		.code { display: inline-block; padding: 10px 20px; background-color: #fff; border: 2px dashed #f4a024; border-radius: 5px; font-size: 20px; letter-spacing: 2px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #f4a024; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to GodlyKids!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Thank you for creating your GodlyKids account! We're excited to help your children grow in faith through stories, quizzes and play.</p>
			<p>Here's what you can do next:</p>
			<ul>
				<li>Add a profile for each of your children</li>
				<li>Let them earn coins with Bible quizzes</li>
				<li>Dress up their avatars in the coin shop</li>
			</ul>
			<p>Share your family code with friends - they earn bonus coins when they redeem it:</p>
			<p style="text-align: center;"><span class="code">%s</span></p>
			<p style="text-align: center;">
				<a href="%s" class="button">Get Started</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from GodlyKids. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, referralCode, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Thank you for creating your GodlyKids account! We're excited to help your children grow in faith through stories, quizzes and play.

Here's what you can do next:
- Add a profile for each of your children
- Let them earn coins with Bible quizzes
- Dress up their avatars in the coin shop

Share your family code with friends - they earn bonus coins when they redeem it:
%s

Get started: %s

---
This is an automated email from GodlyKids. Please do not reply.
`, toName, referralCode, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendRenewalReminderEmail tells a parent their subscription renewal was
// processed, sent by the daily renewal job.
func (s *EmailService) SendRenewalReminderEmail(ctx context.Context, toEmail, toName string, renewedAt time.Time) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): renewal notice to %s", toEmail)
		return nil
	}

	subject := "Your GodlyKids subscription has renewed"
	renewedOn := renewedAt.Format("January 2, 2006")
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f4a024; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #fdf8ef; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Subscription Renewed</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Your GodlyKids subscription renewed on %s. Your family keeps full access to premium stories, voices and avatar items.</p>
			<p>No action is needed. If you have any questions about your subscription, just reply through the app.</p>
		</div>
		<div class="footer">
			<p>This is an automated email from GodlyKids. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, renewedOn)

	textBody := fmt.Sprintf(`Hi %s,

Your GodlyKids subscription renewed on %s. Your family keeps full access to premium stories, voices and avatar items.

No action is needed. If you have any questions about your subscription, just reply through the app.

---
This is an automated email from GodlyKids. Please do not reply.
`, toName, renewedOn)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if s.debug {
		log.Printf("[DEBUG] Calling SES SendEmail: to=%s, subject=%s", toEmail, subject)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
