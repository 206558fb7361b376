package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/log"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"cid","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func clearOAuthEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE", "GOOGLE_OAUTH_TOKEN_FILE"} {
		t.Setenv(k, "")
	}
}

func TestOAuthConfigFromEnv(t *testing.T) {
	clearOAuthEnv(t)
	if _, err := OAuthConfigFromEnv(); !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("err = %v, want ErrNoOAuthClient", err)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testClientJSON)
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		t.Fatalf("OAuthConfigFromEnv: %v", err)
	}
	if cfg.ClientID != "cid" || len(cfg.Scopes) != 1 {
		t.Fatalf("config = %+v", cfg)
	}

	file := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(file, []byte(`{"not":"a client"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", file)
	if _, err := OAuthConfigFromEnv(); err == nil {
		t.Fatal("expected error for malformed client file")
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	if err := SaveToken(path, tok); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.RefreshToken != "rt" || !got.Expiry.Equal(tok.Expiry) {
		t.Fatalf("token = %+v", got)
	}

	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(path); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestOAuthOptionFromEnv(t *testing.T) {
	clearOAuthEnv(t)
	ctx := context.Background()

	if _, ok, err := oauthOptionFromEnv(ctx, log.Discard()); ok || err != nil {
		t.Fatalf("without token file: ok=%v err=%v", ok, err)
	}

	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", path)
	if _, _, err := oauthOptionFromEnv(ctx, log.Discard()); !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("token without client: err = %v", err)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testClientJSON)
	opt, ok, err := oauthOptionFromEnv(ctx, log.Discard())
	if err != nil || !ok || opt == nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}
