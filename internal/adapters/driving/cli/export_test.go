package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openair-labs/awair-export/internal/adapters/driven/config/file"
	"github.com/openair-labs/awair-export/internal/core/domain"
)

func TestParseDay(t *testing.T) {
	day, err := parseDay("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), day)
}

func TestParseDay_Invalid(t *testing.T) {
	_, err := parseDay("14/03/2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestParseDay_DefaultsToYesterday(t *testing.T) {
	day, err := parseDay("")
	require.NoError(t, err)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	assert.Equal(t, yesterday.Format("2006-01-02"), day.Format("2006-01-02"))
}

// An export on an expired credential refreshes it mid-run; the rotated
// refresh token must end up in the store, or the next run is locked out.
func TestExportCommand_PersistsRotatedRefreshToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "old-refresh", r.FormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer new-access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/users/self/devices" {
			fmt.Fprint(w, `{"devices":[{"deviceId":12345,"deviceType":"awair-element","name":"Office"}]}`)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer apiSrv.Close()

	dir := t.TempDir()
	store, err := file.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveConfig(file.Config{
		ProfileID:    "test-profile",
		ClientID:     "cid",
		ClientSecret: "shh",
		Endpoints: file.Endpoints{
			TokenURL:   tokenSrv.URL,
			APIBaseURL: apiSrv.URL,
		},
	}))
	require.NoError(t, store.SaveCredential(domain.Credential{
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"export", "--config-dir", dir, "--date", "2026-03-14", "--out", "-"})
	defer func() {
		rootCmd.SetArgs(nil)
		configDirFlag = ""
		exportDate = ""
		exportOut = ""
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), `"timestamp"`)

	stored, ok, err := store.LoadCredential()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new-refresh", stored.RefreshToken)
	assert.Equal(t, "new-access", stored.AccessToken)
}

func TestVersionCommand(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "awair-export version")
}
