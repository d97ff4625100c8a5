package securebridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/opengovern/secure-bridge/internal"
	"github.com/opengovern/secure-bridge/internal/sanitize"
	"github.com/opengovern/secure-bridge/jsonvalue"
)

// RequestExecutor runs one call through the pipeline gates in order:
// rate limit, auth, payload sanitization, transport, status classification,
// response sanitization. Every gate can end the call; nothing is retried.
type RequestExecutor struct {
	sdk *SecureBridge
}

func NewRequestExecutor(sdk *SecureBridge) *RequestExecutor {
	return &RequestExecutor{sdk: sdk}
}

func (re *RequestExecutor) Execute(ctx context.Context, req *Request) (*APIResponse, error) {
	log := re.sdk.logger().WithValues("method", req.Method, "endpoint", req.Endpoint)

	if err := re.checkRateLimit(ctx, req); err != nil {
		log.V(1).Info("rate limit reached, refusing call", "key", keyForRequest(req))
		return nil, err
	}

	headers := buildHeaders(req.Headers, re.sdk.cc.CSRFToken)
	log = log.WithValues("requestID", headers[http.CanonicalHeaderKey(HeaderRequestID)])

	if req.RequireAuth {
		token, err := re.authorize(ctx)
		if err != nil {
			log.V(1).Info("auth gate refused call", "reason", err.Error())
			return nil, err
		}
		headers["Authorization"] = "Bearer " + token.Raw
	}

	body, err := re.preparePayload(req)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = re.sdk.config.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.V(1).Info("sending request", "timeout", timeout.String())
	resp, err := re.sdk.transport.ExecuteRequest(callCtx, req.Method, re.sdk.config.ResolveURL(req.Endpoint), headers, body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			log.V(1).Info("request timed out, aborted")
			return nil, newError(KindTimeout, fmt.Sprintf("Request timed out after %s", timeout), err)
		}
		log.V(1).Info("no response received", "error", err.Error())
		return nil, newError(KindNetworkError, "Network error: unable to reach the server", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		classified := re.classify(resp)
		if classified.Kind == KindUnauthorized {
			re.forceReauthentication(ctx, "server rejected the session")
		}
		log.V(1).Info("request failed", "status", resp.StatusCode, "kind", string(classified.Kind))
		return nil, classified
	}

	data, err := jsonvalue.Parse(resp.Data)
	if err != nil {
		log.V(1).Info("response body is not JSON", "status", resp.StatusCode)
		e := newValidationError("Response was not valid JSON", nil, err)
		e.HTTPStatus = resp.StatusCode
		return nil, e
	}

	log.V(1).Info("request succeeded", "status", resp.StatusCode)
	return &APIResponse{
		Success: true,
		Data:    sanitize.Value(data),
		Message: successMessage,
	}, nil
}

func (re *RequestExecutor) checkRateLimit(ctx context.Context, req *Request) error {
	decision, err := re.sdk.cc.Limiter.Allow(ctx, keyForRequest(req))
	if err != nil {
		// an unreachable shared limiter does not block traffic
		re.sdk.logger().Error(err, "rate limiter unavailable, allowing call", "endpoint", req.Endpoint)
		return nil
	}
	if !decision.Allowed {
		e := newError(KindRateLimited, "Too many requests. Please wait before trying again.", nil)
		e.RetryAfter = decision.RetryAfter
		return e
	}
	return nil
}

// authorize returns the stored token if it is present and unexpired. Any
// other outcome clears the slot and triggers the login redirect.
func (re *RequestExecutor) authorize(ctx context.Context) (*AuthToken, error) {
	stored, err := re.sdk.cc.Tokens.Load(ctx)
	if err != nil {
		re.sdk.logger().Error(err, "token store unavailable")
		re.forceReauthentication(ctx, "session store unavailable")
		return nil, newError(KindUnauthorized, "Unable to read the current session. Please log in again.", err)
	}
	if stored == nil || stored.AccessToken == "" {
		re.forceReauthentication(ctx, "no session")
		return nil, newError(KindUnauthorized, "Authentication required. Please log in.", nil)
	}

	token, err := DecodeToken(stored.AccessToken)
	if err == nil {
		err = token.Valid(re.sdk.cc.Now())
	}
	if err != nil {
		re.forceReauthentication(ctx, "session expired")
		return nil, newError(KindUnauthorized, "Session expired. Please log in again.", err)
	}
	return token, nil
}

func (re *RequestExecutor) forceReauthentication(ctx context.Context, reason string) {
	if err := re.sdk.cc.Tokens.Clear(ctx); err != nil {
		re.sdk.logger().Error(err, "failed to clear session tokens")
	}
	re.sdk.cc.Navigator.RedirectToLogin(ctx, reason)
}

// preparePayload sanitizes and encodes the body. Reads never carry one.
func (re *RequestExecutor) preparePayload(req *Request) ([]byte, error) {
	if isRead(req.Method) || req.Body == nil {
		return nil, nil
	}
	data, err := jsonvalue.Marshal(sanitize.Value(req.Body))
	if err != nil {
		return nil, newValidationError("Request payload could not be encoded", nil, err)
	}
	return data, nil
}

func (re *RequestExecutor) classify(resp *NormalizedResponse) *Error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return newStatusError(KindUnauthorized, resp.StatusCode, "Session expired. Please log in again.")
	case http.StatusForbidden:
		return newStatusError(KindForbidden, resp.StatusCode, "You do not have permission to perform this action.")
	case http.StatusNotFound:
		return newStatusError(KindNotFound, resp.StatusCode, "The requested resource was not found.")
	case http.StatusTooManyRequests:
		e := newStatusError(KindRateLimited, resp.StatusCode, "Too many requests. Please wait before trying again.")
		if resp.Headers != nil {
			e.RetryAfter = internal.ParseRetryAfter(resp.Headers.Get("Retry-After"), re.sdk.cc.Now())
		}
		return e
	}
	message := serverMessage(resp.Data)
	if message == "" {
		message = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
	}
	return newStatusError(KindServerError, resp.StatusCode, message)
}

// serverMessage pulls a human-readable message out of an error body.
func serverMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"message", "error.message", "error"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
			return strings.TrimSpace(r.Str)
		}
	}
	return ""
}

// keyForRequest derives the limiter key: the caller's override, else the
// method and endpoint path without its query string.
func keyForRequest(req *Request) string {
	if req.RateLimitKey != "" {
		return req.RateLimitKey
	}
	path := req.Endpoint
	if u, err := url.Parse(req.Endpoint); err == nil {
		path = u.Path
	}
	return req.Method + " " + path
}

// tokenFor builds the stored form of a freshly issued token.
func tokenFor(access *AuthToken, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access.Raw,
		TokenType:    "Bearer",
		RefreshToken: refresh,
		Expiry:       access.ExpiresAt(),
	}
}
