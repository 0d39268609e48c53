package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

const maxSimilarity = 0.7

var nonWord = regexp.MustCompile(`\W+`)

// commonPasswords is a short list of the most frequently leaked passwords.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "welcome1": {}, "admin123": {},
	"letmein1": {}, "trustno1": {}, "superman": {}, "starwars": {}, "passw0rd": {},
	"abc12345": {}, "11111111": {}, "00000000": {}, "87654321": {}, "computer": {},
	"whatever": {}, "michelle": {}, "jennifer": {}, "corvette": {}, "mercedes": {},
	"qwerty12": {}, "1q2w3e4r": {}, "zaq12wsx": {}, "asdfghjk": {}, "changeme": {},
	"administrator": {}, "welcome123": {}, "monkey123": {}, "dragon123": {}, "master123": {},
}

// ValidatePassword runs the configured password rules and returns every
// violation. attrs are user attributes (username, names, email) the password
// must not resemble.
func ValidatePassword(password string, minLength int, attrs ...string) []string {
	var problems []string
	if len([]rune(password)) < minLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minLength))
	}
	if similarToAttributes(password, attrs) {
		problems = append(problems, "The password is too similar to the user's details.")
	}
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

func similarToAttributes(password string, attrs []string) bool {
	pw := strings.ToLower(password)
	for _, attr := range attrs {
		attr = strings.ToLower(attr)
		if attr == "" {
			continue
		}
		parts := append(nonWord.Split(attr, -1), attr)
		for _, part := range parts {
			if part == "" || exceedsLengthRatio(pw, part) {
				continue
			}
			if quickRatio(pw, part) >= maxSimilarity {
				return true
			}
		}
	}
	return false
}

// exceedsLengthRatio skips values far shorter than the password, where a
// high ratio is impossible anyway.
func exceedsLengthRatio(password, value string) bool {
	pwLen := len([]rune(password))
	valLen := len([]rune(value))
	bound := maxSimilarity / 2 * float64(pwLen)
	return pwLen >= 10*valLen && float64(valLen) < bound
}

// quickRatio is an upper bound on sequence similarity computed from the
// multiset of shared characters: 2*M / (len(a)+len(b)).
func quickRatio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int, len(br))
	for _, r := range br {
		avail[r]++
	}
	matches := 0
	for _, r := range ar {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}
