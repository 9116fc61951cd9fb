package services

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/bie71/veo3-studio/models"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBase64(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47})

	tests := []struct {
		name  string
		input string
	}{
		{"raw base64", raw},
		{"data URL prefix", "data:image/png;base64," + raw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base64.StdEncoding.DecodeString(NormalizeBase64(tt.input))
			require.NoError(t, err)
			require.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, got)
		})
	}
}

func TestBuildGenerateBodyPartOrder(t *testing.T) {
	refs := []models.ReferenceImage{
		{MimeType: "image/png", DataBase64: "data:image/png;base64,QUFB"},
		{MimeType: "image/jpeg", DataBase64: "QkJC"},
	}

	body := BuildGenerateBody("do the thing", refs)

	require.Len(t, body.Contents, 1)
	require.Equal(t, "user", body.Contents[0].Role)

	parts := body.Contents[0].Parts
	require.Len(t, parts, 3)
	require.Equal(t, "do the thing", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	require.Equal(t, "image/png", parts[1].InlineData.MimeType)
	require.Equal(t, "QUFB", parts[1].InlineData.Data, "data URL prefix should be stripped")
	require.Equal(t, "QkJC", parts[2].InlineData.Data)

	require.NotNil(t, body.GenerationConfig)
	require.Equal(t, 0.4, body.GenerationConfig.Temperature)
}

func TestAppendReferenceParts(t *testing.T) {
	raw := json.RawMessage(`{"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`)
	refs := []models.ReferenceImage{{MimeType: "image/png", DataBase64: "QUFB"}}

	out, err := AppendReferenceParts(raw, refs)
	require.NoError(t, err)

	var body models.GenerateContentRequest
	require.NoError(t, json.Unmarshal(out, &body))
	require.Len(t, body.Contents[0].Parts, 2)
	require.Equal(t, "hi", body.Contents[0].Parts[0].Text)
	require.Equal(t, "QUFB", body.Contents[0].Parts[1].InlineData.Data)
}

func TestAppendReferencePartsNoPartsUntouched(t *testing.T) {
	raw := json.RawMessage(`{"somethingElse":true}`)
	out, err := AppendReferenceParts(raw, []models.ReferenceImage{{MimeType: "image/png", DataBase64: "QUFB"}})
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(out))
}

func TestAppendReferencePartsEmptyRefs(t *testing.T) {
	raw := json.RawMessage(`{"contents":[{"parts":[{"text":"hi"}]}]}`)
	out, err := AppendReferenceParts(raw, nil)
	require.NoError(t, err)
	require.Equal(t, raw, out)
}
