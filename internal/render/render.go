package render

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Input is the rendering contract handed to the certificate renderer. The
// QRPayload is what the rendered document encodes as a QR code.
type Input struct {
	CertificateID string    `json:"certificate_id"`
	VolunteerID   string    `json:"volunteer_id"`
	TaskID        string    `json:"task_id"`
	TaskTitle     string    `json:"task_title"`
	IssuedAt      time.Time `json:"issued_at"`
	QRPayload     string    `json:"qr_payload"`
}

// Document is a rendered certificate ready to stream to the client.
type Document struct {
	ContentType string
	Body        []byte
}

// Renderer turns a certificate into a downloadable document. Production
// deployments point this at the external PDF renderer.
type Renderer interface {
	Render(ctx context.Context, in Input) (Document, error)
}

// QRPayload encodes the certificate download URL the way the rendered QR
// code carries it.
func QRPayload(baseURL, volunteerID, taskID string) string {
	url := fmt.Sprintf("%s/volunteer/certificates/download/%s/%s", baseURL, volunteerID, taskID)
	return base64.StdEncoding.EncodeToString([]byte(url))
}

// JSONRenderer emits the render input itself as a JSON document. It stands in
// for the external renderer in tests and local development.
type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (JSONRenderer) Render(_ context.Context, in Input) (Document, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return Document{}, fmt.Errorf("encode certificate document: %w", err)
	}
	return Document{ContentType: "application/json", Body: body}, nil
}
