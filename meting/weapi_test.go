package meting

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESEncryptKnownVectors(t *testing.T) {
	first, err := aesEncrypt(`{"id":"1","lv":-1,"tv":-1}`, weapiNonce)
	require.NoError(t, err)
	assert.Equal(t, "nw4iXAMGkwy4/CkQnRRDEBzRzkEB/Y46or9vSjt4lRI=", first)

	second, err := aesEncrypt(first, "abcdefghijklmnop")
	require.NoError(t, err)
	assert.Equal(t, "hkeyfyq55N1z8SD3Spe7xVvZ0r6VSxwoiIWrBcwEOOJZ47gOoNczgGPkbQ/UsqCc", second)
}

func TestAESEncryptRejectsBadKey(t *testing.T) {
	_, err := aesEncrypt("x", "short")
	assert.Error(t, err)
}

func TestRSAEncryptKnownVectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "abcdefghijklmnop",
			want: "d15a1683c992095d0c234c19966605c5c5964911268bbeda8cb8d08d834913e59d53b32358903a121b5fca784c1f5ae44951fd02524df58ecc98e52cc7cf8689b42c2e93ddf05b0592512d87f5960467e2f086c018849d76014d323500e30f13ef4cafbb0cf5a66731a3f1776c75ca35d0062dac70a3e33245afabcf47938487",
		},
		{
			in:   "0000000000000000",
			want: "babc57ca9e9ffb0a879ae290ac6cba6f60620aa9ae3b36a84585e23bbc73d73b13a2ebab4aa2ee80544d255727adc5a04db613d77d02a62a52b3a03134d16f191d54675f560f797c7f03e3a30c43df8b1b49878fd225b62f5f78041427debc3e95b93582f130618630702621da4eda9c71af91836cc39ab3b760b033643a1889",
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := rsaEncrypt(tt.in)
			assert.Len(t, got, 256)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateSecretKey(t *testing.T) {
	key := createSecretKey(rand.New(rand.NewSource(1)), 16)
	require.Len(t, key, 16)
	for _, r := range key {
		assert.True(t, strings.ContainsRune(secretKeyRunes, r), "unexpected rune %q", r)
	}

	again := createSecretKey(rand.New(rand.NewSource(1)), 16)
	assert.Equal(t, key, again)
}

func TestNeteaseWeapiDeterministicForSameKey(t *testing.T) {
	body := map[string]any{"id": "1", "lv": -1, "tv": -1}

	first, err := neteaseWeapi(body, "abcdefghijklmnop")
	require.NoError(t, err)
	second, err := neteaseWeapi(body, "abcdefghijklmnop")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "hkeyfyq55N1z8SD3Spe7xVvZ0r6VSxwoiIWrBcwEOOJZ47gOoNczgGPkbQ/UsqCc", first["params"])
	assert.Equal(t, rsaEncrypt("abcdefghijklmnop"), first["encSecKey"])

	other, err := neteaseWeapi(body, "ponmlkjihgfedcba")
	require.NoError(t, err)
	assert.NotEqual(t, first["params"], other["params"])
}

func TestMarshalBodyKeepsHTML(t *testing.T) {
	text, err := marshalBody(map[string]any{"s": "rock & roll <live>"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"rock & roll <live>"}`, text)
}
