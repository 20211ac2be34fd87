package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainSecret = `apiVersion: v1
kind: Secret
metadata:
  name: db
data:
  username: admin
  password: hunter2
  empty: null
`

func TestEncodeDecodeData_RoundTrip(t *testing.T) {
	encoded, err := EncodeData([]byte(plainSecret))
	require.NoError(t, err)

	out := string(encoded)
	assert.Contains(t, out, "username: YWRtaW4=")
	assert.Contains(t, out, "password: aHVudGVyMg==")
	// Null values pass through untouched.
	assert.Contains(t, out, "empty: null")

	decoded, err := DecodeData(encoded)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "username: admin")
	assert.Contains(t, string(decoded), "password: hunter2")
}

func TestDecodeData_MultilineUsesLiteralStyle(t *testing.T) {
	// "line1\nline2\n" base64-encoded.
	encoded := `kind: Secret
data:
  key.pem: bGluZTEKbGluZTIK
`
	decoded, err := DecodeData([]byte(encoded))
	require.NoError(t, err)

	out := string(decoded)
	assert.Contains(t, out, "key.pem: |")
	assert.Contains(t, out, "line1")
	assert.Contains(t, out, "line2")
}

func TestDecodeData_BadBase64(t *testing.T) {
	_, err := DecodeData([]byte("kind: Secret\ndata:\n  broken: '!!!not base64!!!'\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestEncodeData_NoDataSection(t *testing.T) {
	in := "kind: ConfigMap\nmetadata:\n  name: cfg\n"
	out, err := EncodeData([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestRevertUnchanged(t *testing.T) {
	newPlain := []byte("kind: Secret\ndata:\n  same: dg==\n  changed: bmV3\n")
	origPlain := []byte("kind: Secret\ndata:\n  same: dg==\n  changed: b2xk\n")
	origSealed := []byte("kind: SealedSecret\nspec:\n  encryptedData:\n    same: OLDCIPHER1\n    changed: OLDCIPHER2\n")
	newSealed := []byte("kind: SealedSecret\nspec:\n  encryptedData:\n    same: NEWCIPHER1\n    changed: NEWCIPHER2\n")

	out, err := RevertUnchanged(newPlain, newSealed, origPlain, origSealed)
	require.NoError(t, err)

	s := string(out)
	// Unchanged entry keeps the old ciphertext; changed entry keeps the new.
	assert.Contains(t, s, "same: OLDCIPHER1")
	assert.Contains(t, s, "changed: NEWCIPHER2")
	assert.NotContains(t, s, "NEWCIPHER1")
	assert.NotContains(t, s, "OLDCIPHER2")
}

func TestRevertUnchanged_NewKeyKept(t *testing.T) {
	newPlain := []byte("kind: Secret\ndata:\n  fresh: dg==\n")
	origPlain := []byte("kind: Secret\ndata: {}\n")
	origSealed := []byte("kind: SealedSecret\nspec:\n  encryptedData: {}\n")
	newSealed := []byte("kind: SealedSecret\nspec:\n  encryptedData:\n    fresh: CIPHER\n")

	out, err := RevertUnchanged(newPlain, newSealed, origPlain, origSealed)
	require.NoError(t, err)
	assert.Contains(t, string(out), "fresh: CIPHER")
}
