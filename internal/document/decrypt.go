package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Decrypter removes password protection from statement bytes via an
// external sidecar. The extraction engine never sees encrypted content.
type Decrypter struct {
	baseURL string
	client  *http.Client
}

// NewDecrypter creates a new Decrypter client.
func NewDecrypter(baseURL string) (*Decrypter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("decrypter base URL is required")
	}

	return &Decrypter{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type decryptRequest struct {
	Data     []byte `json:"data"` // base64 over the wire
	Password string `json:"password"`
}

type decryptResponse struct {
	Data  []byte `json:"data"`
	Error string `json:"error,omitempty"`
}

// Decrypt returns the decrypted document bytes, or the failure reason
// reported by the sidecar (e.g. an incorrect password).
func (d *Decrypter) Decrypt(data []byte, password string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := json.Marshal(decryptRequest{Data: data, Password: password})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/decrypt", d.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling decrypt service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("decrypt service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var dr decryptResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if dr.Error != "" {
		return nil, fmt.Errorf("decrypting document: %s", dr.Error)
	}
	return dr.Data, nil
}
