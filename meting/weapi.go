package meting

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"math/rand"
)

// NetEase weapi constants. They are fixed by the vendor.
const (
	weapiNonce     = "0CoJUm6Qyw8W8jud"
	weapiIV        = "0102030405060708"
	weapiPubKey    = "010001"
	weapiModulus   = "00e0b509f6259df8642dbc35662901477df22677ec152b5ff68ace615bb7b725152b3ab17a876aea8a5aa76d2e417629ec4ee341f56135fccf695280104e0312ecbda92557c93870114af6c9d05c4f7f0c3685b7a46bee255932575cce10b424d813cfe4875d3e82047b97ddef52741d546b8e289dc6935b3ece0462db0a22b8e7"
	secretKeyRunes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	weapiE = mustHexInt(weapiPubKey)
	weapiN = mustHexInt(weapiModulus)
)

func mustHexInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("meting: bad hex constant " + s)
	}
	return n
}

// createSecretKey draws size characters from the alphanumeric alphabet. The
// vendor only needs an unpredictable-enough nonce, so math/rand is fine.
func createSecretKey(rng *rand.Rand, size int) string {
	key := make([]byte, size)
	for i := range key {
		key[i] = secretKeyRunes[rng.Intn(len(secretKeyRunes))]
	}
	return string(key)
}

func pkcs7Pad(src []byte, blockSize int) []byte {
	padding := blockSize - len(src)%blockSize
	return append(src, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// aesEncrypt runs AES-128-CBC with the weapi IV and returns base64 text.
func aesEncrypt(text, key string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("aes key: %w", err)
	}
	src := pkcs7Pad([]byte(text), block.BlockSize())
	dst := make([]byte, len(src))
	cipher.NewCBCEncrypter(block, []byte(weapiIV)).CryptBlocks(dst, src)
	return base64.StdEncoding.EncodeToString(dst), nil
}

// rsaEncrypt is textbook modular exponentiation over the reversed key, hex
// rendered and left-padded to 256 characters.
func rsaEncrypt(text string) string {
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	base, _ := new(big.Int).SetString(hex.EncodeToString([]byte(string(runes))), 16)
	if base == nil {
		base = new(big.Int)
	}
	return fmt.Sprintf("%0256x", new(big.Int).Exp(base, weapiE, weapiN))
}

// marshalBody serializes a request body the way a browser JSON.stringify
// would, without HTML escaping.
func marshalBody(body map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// neteaseWeapi builds the {params, encSecKey} envelope for body.
func neteaseWeapi(body map[string]any, secKey string) (map[string]any, error) {
	if body == nil {
		body = map[string]any{}
	}
	text, err := marshalBody(body)
	if err != nil {
		return nil, fmt.Errorf("weapi body: %w", err)
	}
	inner, err := aesEncrypt(text, weapiNonce)
	if err != nil {
		return nil, err
	}
	params, err := aesEncrypt(inner, secKey)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"params":    params,
		"encSecKey": rsaEncrypt(secKey),
	}, nil
}
