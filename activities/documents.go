package activities

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"

	"go.temporal.io/sdk/activity"

	"temporal-fiscal-request/shared"
)

// ProcessXML uploads an invoice XML to the document backend and returns the
// extracted document. A structured failure (success=false) is returned as a
// normal result; only transport and HTTP failures are errors.
// Idempotency: not idempotent, the backend stores a new document per upload.
func (a *Activities) ProcessXML(ctx context.Context, in shared.UploadXMLInput) (shared.XMLProcessResponse, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Uploading invoice XML",
		"fileName", in.FileName,
		"size", len(in.Content),
	)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("arquivo", in.FileName)
	if err != nil {
		return shared.XMLProcessResponse{}, transportError(err.Error(), err)
	}
	if _, err := part.Write(in.Content); err != nil {
		return shared.XMLProcessResponse{}, transportError(err.Error(), err)
	}
	if err := mw.Close(); err != nil {
		return shared.XMLProcessResponse{}, transportError(err.Error(), err)
	}

	req, err := http.NewRequest(http.MethodPost, a.DocumentsBaseURL+"/NotasFiscais/processar-xml", &buf)
	if err != nil {
		return shared.XMLProcessResponse{}, transportError(err.Error(), err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out shared.XMLProcessResponse
	if err := a.do(ctx, logger, opProcessXML, req, &out, func() bool { return out.Success }); err != nil {
		return shared.XMLProcessResponse{}, err
	}

	logger.Info("Invoice XML processed",
		"fileName", in.FileName,
		"success", out.Success,
		"message", out.Message,
	)
	return out, nil
}
