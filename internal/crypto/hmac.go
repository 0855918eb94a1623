package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APICreds are the L2 credentials issued by the CLOB for a wallet.
type APICreds struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Empty reports whether no credentials are set.
func (c APICreds) Empty() bool {
	return c.Key == "" && c.Secret == "" && c.Passphrase == ""
}

// String returns a redacted form suitable for logging.
func (c APICreds) String() string {
	return fmt.Sprintf("APICreds{key=%s, secret=%s}", redact(c.Key), redact(c.Secret))
}

// L2Headers signs method+path+body at unixTS and sets the CLOB L2 headers
// on h. The secret is URL-safe base64 as issued by the CLOB; standard
// encoding is accepted too.
func (c APICreds) L2Headers(h http.Header, address, method, path, body string, unixTS int64) {
	ts := strconv.FormatInt(unixTS, 10)
	h.Set("POLY_ADDRESS", address)
	h.Set("POLY_API_KEY", c.Key)
	h.Set("POLY_PASSPHRASE", c.Passphrase)
	h.Set("POLY_TIMESTAMP", ts)
	h.Set("POLY_SIGNATURE", c.sign(ts+method+path+body))
}

func (c APICreds) sign(message string) string {
	secret, err := base64.URLEncoding.DecodeString(c.Secret)
	if err != nil {
		if secret, err = base64.StdEncoding.DecodeString(c.Secret); err != nil {
			secret = []byte(c.Secret)
		}
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// L1Headers sets the wallet-signature headers used to create or derive API
// credentials.
func (s *Signer) L1Headers(h http.Header, now time.Time, nonce int64) error {
	ts := now.Unix()
	sig, err := s.SignAuthMessage(ts, nonce)
	if err != nil {
		return err
	}
	h.Set("POLY_ADDRESS", s.address.Hex())
	h.Set("POLY_SIGNATURE", sig)
	h.Set("POLY_TIMESTAMP", strconv.FormatInt(ts, 10))
	h.Set("POLY_NONCE", strconv.FormatInt(nonce, 10))
	return nil
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
