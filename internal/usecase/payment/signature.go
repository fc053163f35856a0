package payment

import (
	"crypto/md5"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// MidtransSignature is SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// DuitkuSignature is MD5(merchantCode + amount + merchantOrderId + apiKey), hex encoded.
func DuitkuSignature(merchantCode, amount, merchantOrderID, apiKey string) string {
	sum := md5.Sum([]byte(merchantCode + amount + merchantOrderID + apiKey))
	return hex.EncodeToString(sum[:])
}

func signatureEqual(expected, got string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
