package auth

import "golang.org/x/crypto/bcrypt"

// passwordCost is the bcrypt work factor used for new hashes
const passwordCost = 12

// HashPassword returns a salted bcrypt hash of plain
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash.
// A malformed hash counts as a mismatch.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
