package credentials

import (
	"crypto/rand"
	"math/big"
)

// Word lists for generating kid-friendly usernames
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "kind", "swift", "gentle", "jolly",
	"mighty", "joyful", "star", "wise", "funny", "lucky", "merry", "bouncy",
	"cheerful", "daring", "eager", "faithful", "glad", "humble", "noble", "peaceful",
	"lively", "loyal", "patient", "perky", "quick", "royal", "shining", "steady",
	"thankful", "awesome", "bold", "caring", "gracious", "honest", "radiant", "true",
}

var nouns = []string{
	"lamb", "dove", "eagle", "dolphin", "lion", "sparrow", "deer", "bear",
	"fox", "hawk", "whale", "olive", "cedar", "shepherd", "fisher", "singer",
	"knight", "builder", "helper", "explorer", "hero", "champion", "keeper", "ranger",
	"sower", "captain", "dreamer", "comet", "rainbow", "lantern", "river", "mountain",
	"flame", "harvest", "garden", "spring", "anchor", "beacon", "harbor", "racer",
}

// GenerateKidUsername generates a random username in the format "adjective-noun"
func GenerateKidUsername() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return adjective + "-" + noun, nil
}

// GenerateKidPIN generates a random 4-character PIN using letters and numbers
func GenerateKidPIN() (string, error) {
	chars := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	pin := make([]byte, 4)

	for i := 0; i < 4; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		pin[i] = chars[num.Int64()]
	}

	return string(pin), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
