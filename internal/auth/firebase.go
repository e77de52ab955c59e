package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuer = "https://securetoken.google.com/"
)

type firebaseClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// FirebaseVerifier checks Firebase ID tokens: RS256 signed by one of
// Google's rotating securetoken certificates, audience = project id.
type FirebaseVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client

	refreshMu sync.Mutex
	keys      *expirable.LRU[string, *rsa.PublicKey]
}

type FirebaseOption func(*FirebaseVerifier)

func WithCertsURL(u string) FirebaseOption {
	return func(v *FirebaseVerifier) { v.certsURL = u }
}

func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(v *FirebaseVerifier) { v.client = c }
}

func NewFirebaseVerifier(projectID string, keyTTL time.Duration, opts ...FirebaseOption) *FirebaseVerifier {
	if keyTTL <= 0 {
		keyTTL = time.Hour
	}
	v := &FirebaseVerifier{
		projectID: strings.TrimSpace(projectID),
		certsURL:  GoogleCertsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		keys:      expirable.NewLRU[string, *rsa.PublicKey](32, nil, keyTTL),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (string, error) {
	if v.projectID == "" {
		return "", fmt.Errorf("%w: firebase project id not configured", ErrInvalidToken)
	}

	claims := &firebaseClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			return v.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(firebaseIssuer+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("token has no kid header")
	}
	if k, ok := v.keys.Get(kid); ok {
		return k, nil
	}

	v.refreshMu.Lock()
	defer v.refreshMu.Unlock()
	if k, ok := v.keys.Get(kid); ok {
		return k, nil
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	if k, ok := v.keys.Get(kid); ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return err
	}
	res, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certs: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certs: status %d", res.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(res.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certs: %w", err)
	}
	for kid, pem := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			continue
		}
		v.keys.Add(kid, key)
	}
	return nil
}
