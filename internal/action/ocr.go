package action

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/linkhoard/linkhoard/internal/errkind"
	"github.com/linkhoard/linkhoard/internal/httpx"
)

// OCR sends an image to an external recognition service and returns the
// recognized text. Options: "engine" picks the recognizer, "list-engines"
// lists what the service offers instead of running one.
type OCR struct {
	client  *httpx.Client
	baseURL string
}

func NewOCR(client *httpx.Client, baseURL string) *OCR {
	return &OCR{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (o *OCR) Name() string        { return "ocr" }
func (o *OCR) Description() string { return "extracts text from an image" }

// CanRun requires a configured endpoint.
func (o *OCR) CanRun() bool { return o.baseURL != "" }

func (o *OCR) Run(ctx context.Context, req *Request) (*Result, error) {
	if optBool(req.Options, "list-engines") {
		return o.listEngines(ctx, req)
	}
	engine := optString(req.Options, "engine")
	if engine == "" {
		return nil, errkind.Permanentf("ocr requires an engine option")
	}

	resp, err := o.client.PostMultipartFile(ctx, o.baseURL+"/ocr/"+engine, "file", req.Path, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, errkind.Permanent(fmt.Errorf("bad ocr response: %w", err))
	}
	lines := make([]string, 0, len(body.Data))
	for _, d := range body.Data {
		lines = append(lines, d.Text)
	}
	return &Result{Request: req, Text: strings.Join(lines, "\n")}, nil
}

func (o *OCR) listEngines(ctx context.Context, req *Request) (*Result, error) {
	var engines []string
	err := o.client.DoJSON(ctx, httpx.Request{
		Method: http.MethodGet,
		URL:    o.baseURL + "/endpoints",
	}, &engines)
	if err != nil {
		return nil, err
	}
	return &Result{Request: req, Text: strings.Join(engines, "\n")}, nil
}
