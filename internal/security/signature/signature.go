// Package signature implements the HMAC scheme installations use to sign
// their login requests.
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
)

// Compute devuelve el digest HMAC-SHA512 en hexadecimal minúscula del string
// canónico "{installation};{nonce};{date}", firmado con el secreto compartido.
func Compute(secret []byte, installation, nonce, date string) string {
	mac := hmac.New(sha512.New, secret)
	fmt.Fprintf(mac, "%s;%s;%s", installation, nonce, date)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected digest and compares it against the supplied
// authorization value in constant time.
func Verify(secret []byte, installation, nonce, date, authorization string) bool {
	expected := Compute(secret, installation, nonce, date)
	return hmac.Equal([]byte(expected), []byte(authorization))
}
