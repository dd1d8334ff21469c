// Package main serves one calculation per Lambda function URL request.
// Configuration comes from GACHA_* environment variables; GACHA_CONFIG may
// name a YAML file bundled with the function.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"gacha-lab/internal/app"
	"gacha-lab/internal/config"
	"gacha-lab/internal/logging"
	"gacha-lab/internal/server"
)

const maxBodyBytes = 1 << 20

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// computer runs a workspace document; *server.Server satisfies it.
type computer interface {
	Compute(ctx context.Context, doc []byte) (*server.ComputeResponse, error)
}

type handler struct {
	srv computer
}

func (h *handler) handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	if method := event.RequestContext.HTTP.Method; method != "" && method != http.MethodPost {
		return errResp(http.StatusMethodNotAllowed, "method not allowed: "+method)
	}

	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(http.StatusBadRequest, "invalid base64 body")
		}
		body = string(decoded)
	}
	if len(body) > maxBodyBytes {
		return errResp(http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", maxBodyBytes))
	}

	resp, err := h.srv.Compute(ctx, []byte(body))
	if err != nil {
		return errResp(server.ErrorStatus(err), err.Error())
	}

	respJSON, err := json.Marshal(resp)
	if err != nil {
		return errResp(http.StatusInternalServerError, "encode response: "+err.Error())
	}
	return events.LambdaFunctionURLResponse{StatusCode: http.StatusOK, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("GACHA_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	a, err := app.New(context.Background(), cfg, app.Options{Logger: logger})
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}
	defer a.Close()

	h := &handler{srv: a.Server}
	lambda.Start(h.handle)
}
