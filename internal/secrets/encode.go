package secrets

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quayops/stevedore/internal/yamlutil"
)

// DecodeData base64-decodes every value under data: in a Secret manifest.
// Multi-line values are emitted in literal block style so PEM keys and the
// like stay readable in the unsealed file.
func DecodeData(content []byte) ([]byte, error) {
	return transformData(content, func(value *yaml.Node) error {
		plain, err := base64.StdEncoding.DecodeString(value.Value)
		if err != nil {
			return fmt.Errorf("base64 decode: %w", err)
		}

		value.SetString(string(plain))
		if strings.Contains(string(plain), "\n") {
			value.Style = yaml.LiteralStyle
		} else {
			value.Style = 0
		}
		return nil
	})
}

// EncodeData base64-encodes every value under data: in a Secret manifest.
func EncodeData(content []byte) ([]byte, error) {
	return transformData(content, func(value *yaml.Node) error {
		value.SetString(base64.StdEncoding.EncodeToString([]byte(value.Value)))
		value.Style = 0
		return nil
	})
}

// transformData applies fn to every non-null data value in every document.
func transformData(content []byte, fn func(*yaml.Node) error) ([]byte, error) {
	docs, err := yamlutil.DecodeStream(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		data := yamlutil.MapGet(doc, "data")
		if data == nil || data.Kind != yaml.MappingNode {
			continue
		}

		for i := 0; i+1 < len(data.Content); i += 2 {
			value := data.Content[i+1]
			if yamlutil.IsNull(value) {
				continue
			}
			if err := fn(value); err != nil {
				return nil, fmt.Errorf("data key %s: %w", data.Content[i].Value, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := yamlutil.EncodeStream(&buf, docs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RevertUnchanged keeps the previous ciphertext for every data entry whose
// plaintext did not change, so resealing produces minimal diffs. kubeseal
// encryption is randomized and would otherwise rewrite every entry.
func RevertUnchanged(newPlain, newSealed, origPlain, origSealed []byte) ([]byte, error) {
	newPlainDoc, err := firstDoc(newPlain)
	if err != nil {
		return nil, err
	}
	origPlainDoc, err := firstDoc(origPlain)
	if err != nil {
		return nil, err
	}
	origSealedDoc, err := firstDoc(origSealed)
	if err != nil {
		return nil, err
	}
	newSealedDocs, err := yamlutil.DecodeStream(bytes.NewReader(newSealed))
	if err != nil || len(newSealedDocs) == 0 {
		return nil, fmt.Errorf("parse sealed secret: %w", err)
	}

	newData := yamlutil.MapGet(newPlainDoc, "data")
	origData := yamlutil.MapGet(origPlainDoc, "data")
	origEncrypted := yamlutil.MapGetPath(origSealedDoc, "spec", "encryptedData")
	newEncrypted := yamlutil.MapGetPath(newSealedDocs[0], "spec", "encryptedData")

	if newData == nil || origData == nil || origEncrypted == nil || newEncrypted == nil {
		var buf bytes.Buffer
		if err := yamlutil.EncodeStream(&buf, newSealedDocs); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	for i := 0; i+1 < len(newData.Content); i += 2 {
		key := newData.Content[i].Value
		old := yamlutil.MapGet(origData, key)
		if old == nil || old.Value != newData.Content[i+1].Value {
			continue
		}
		oldCipher := yamlutil.MapGet(origEncrypted, key)
		if oldCipher == nil {
			continue
		}
		yamlutil.MapSet(newEncrypted, key, yamlutil.DeepCopy(oldCipher))
	}

	var buf bytes.Buffer
	if err := yamlutil.EncodeStream(&buf, newSealedDocs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func firstDoc(content []byte) (*yaml.Node, error) {
	docs, err := yamlutil.DecodeStream(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("empty yaml document")
	}
	return docs[0], nil
}
