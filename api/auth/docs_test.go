package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/conychips/auth/api/auth"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocRegistered(t *testing.T) {
	doc, err := swag.ReadDoc(auth.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var parsed struct {
		Info  struct{ Title string } `json:"info"`
		Paths map[string]any        `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	require.Equal(t, auth.SwaggerInfo.Title, parsed.Info.Title)
	require.Contains(t, parsed.Paths, "/v1/auth/login")
	require.Contains(t, parsed.Paths, "/v1/tokens/revoke")
}
