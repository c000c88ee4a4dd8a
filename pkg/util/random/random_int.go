package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GetTag 生成 4 位数字标签，范围 0001-9999
func GetTag() string {
	n, err := rand.Int(rand.Reader, big.NewInt(9999))
	if err != nil {
		return "0001"
	}
	return fmt.Sprintf("%04d", n.Int64()+1)
}

// GetRandomString 生成指定长度的字母数字随机串（用于邀请码）
func GetRandomString(length int) string {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(alphanumeric)))
	for i := range result {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			result[i] = 'x'
			continue
		}
		result[i] = alphanumeric[n.Int64()]
	}
	return string(result)
}

