package auth

import "golang.org/x/crypto/bcrypt"

// HashPin hashes a raw PIN (or admin password) with bcrypt. Cost 10 is
// slow on purpose; callers must never hold a DB lock across a check.
func HashPin(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPin reports whether the raw PIN matches the stored hash.
func CheckPin(pin, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
