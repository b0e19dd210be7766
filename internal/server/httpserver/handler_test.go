package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/multichat/internal/logging"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/rpc"
	"github.com/dmitrijs2005/multichat/internal/server/rpc/rpctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*HTTPServer, *rpctest.Services) {
	t.Helper()
	svc := rpctest.New()
	reg := rpc.NewRegistry(svc, svc, svc)
	res := auth.NewResolver(svc, logging.Nop{})
	return NewHTTPServer("127.0.0.1:0", logging.Nop{}, reg, res), svc
}

type wireError struct {
	JSON struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Data    struct {
			Code       string `json:"code"`
			HTTPStatus int    `json:"httpStatus"`
			Path       string `json:"path"`
		} `json:"data"`
	} `json:"json"`
}

type wireResponse struct {
	Result *struct {
		Data struct {
			JSON json.RawMessage `json:"json"`
			Meta *struct {
				Values map[string][]string `json:"values"`
			} `json:"meta"`
		} `json:"data"`
	} `json:"result"`
	Error *wireError `json:"error"`
}

func do(t *testing.T, s *HTTPServer, method, target, body, token string) (*httptest.ResponseRecorder, []wireResponse) {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)

	var out []wireResponse
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "[") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	} else {
		var one wireResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one), w.Body.String())
		out = []wireResponse{one}
	}
	return w, out
}

func batchGet(procs string, input string) string {
	target := "/api/trpc/" + procs + "?batch=1"
	if input != "" {
		target += "&input=" + url.QueryEscape(input)
	}
	return target
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_IsEchoed(t *testing.T) {
	s, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestProtectedProcedure_WithoutToken(t *testing.T) {
	s, _ := newTestServer(t)

	w, out := do(t, s, http.MethodGet, batchGet("chat.history", ""), "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Error)
	assert.Equal(t, "UNAUTHORIZED", out[0].Error.JSON.Data.Code)
	assert.Equal(t, -32001, out[0].Error.JSON.Code)
	assert.Equal(t, 401, out[0].Error.JSON.Data.HTTPStatus)
	assert.Equal(t, "chat.history", out[0].Error.JSON.Data.Path)
}

func TestProtectedProcedure_InvalidTokenIsAnonymous(t *testing.T) {
	s, _ := newTestServer(t)

	w, out := do(t, s, http.MethodGet, batchGet("models.getAvailable", ""), "", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", out[0].Error.JSON.Data.Code)
}

func TestPublicProcedure_WithoutToken(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"0":{"json":{"email":"alice@example.com","password":"secret1"}}}`
	w, out := do(t, s, http.MethodPost, "/api/trpc/auth.signIn?batch=1", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, out[0].Result)

	var res struct {
		User    struct{ ID, Email string } `json:"user"`
		Session struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(out[0].Result.Data.JSON, &res))
	assert.Equal(t, rpctest.UserID, res.User.ID)
	assert.Equal(t, rpctest.Token, res.Session.AccessToken)
	assert.Equal(t, "bearer", res.Session.TokenType)

	meta := out[0].Result.Data.Meta
	require.NotNil(t, meta)
	assert.Equal(t, []string{"Date"}, meta.Values["user.created_at"])
	assert.Equal(t, []string{"Date"}, meta.Values["session.expires_at"])
}

func TestSignIn_BadCredentials(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"0":{"json":{"email":"alice@example.com","password":"wrong"}}}`
	w, out := do(t, s, http.MethodPost, "/api/trpc/auth.signIn?batch=1", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, out[0].Error.JSON.Message, "invalid login credentials")
}

func TestSignUp_ValidationIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"0":{"json":{"email":"bob@example.com","password":"123"}}}`
	w, out := do(t, s, http.MethodPost, "/api/trpc/auth.signUp?batch=1", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", out[0].Error.JSON.Data.Code)
	assert.Equal(t, -32600, out[0].Error.JSON.Code)
}

func TestSendThenHistory(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"0":{"json":{"modelTag":"unknown-model","prompt":"hello"}}}`
	w, out := do(t, s, http.MethodPost, "/api/trpc/chat.send?batch=1", body, rpctest.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sent struct {
		UserMessage      struct{ Role, Content string } `json:"userMessage"`
		AssistantMessage struct {
			Role      string    `json:"role"`
			Content   string    `json:"content"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"assistantMessage"`
	}
	require.NoError(t, json.Unmarshal(out[0].Result.Data.JSON, &sent))
	assert.Equal(t, "user", sent.UserMessage.Role)
	assert.Equal(t, `You said: "hello"`, sent.AssistantMessage.Content)
	assert.Equal(t, []string{"Date"}, out[0].Result.Data.Meta.Values["assistantMessage.created_at"])

	w, out = do(t, s, http.MethodGet, batchGet("chat.history", `{"0":{"json":null,"meta":{"values":["undefined"]}}}`), "", rpctest.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var history []struct{ Role, Content string }
	require.NoError(t, json.Unmarshal(out[0].Result.Data.JSON, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Contains(t, out[0].Result.Data.Meta.Values, "1.created_at")
}

func TestBatch_MixedResultsAre207(t *testing.T) {
	s, _ := newTestServer(t)

	w, out := do(t, s, http.MethodGet, batchGet("models.getAvailable,auth.getUser,chat.nope", ""), "", rpctest.Token)
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	require.Len(t, out, 3)
	assert.NotNil(t, out[0].Result)
	assert.NotNil(t, out[1].Result)
	require.NotNil(t, out[2].Error)
	assert.Equal(t, "NOT_FOUND", out[2].Error.JSON.Data.Code)
	assert.Equal(t, "chat.nope", out[2].Error.JSON.Data.Path)
}

func TestBatch_AllSucceed(t *testing.T) {
	s, _ := newTestServer(t)

	w, out := do(t, s, http.MethodGet, batchGet("models.getAvailable,chat.history", ""), "", rpctest.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, out, 2)

	var list []struct{ Tag string }
	require.NoError(t, json.Unmarshal(out[0].Result.Data.JSON, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "gpt-4o-mini", list[0].Tag)
}

func TestBatch_SameErrorStatus(t *testing.T) {
	s, _ := newTestServer(t)

	w, out := do(t, s, http.MethodGet, batchGet("models.getAvailable,chat.history", ""), "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.Len(t, out, 2)
}

func TestInternalErrorsHideDetails(t *testing.T) {
	s, svc := newTestServer(t)
	svc.FailChat = true

	w, out := do(t, s, http.MethodGet, batchGet("chat.history", ""), "", rpctest.Token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", out[0].Error.JSON.Data.Code)
	assert.Equal(t, "internal error", out[0].Error.JSON.Message)
}

func TestBatch_PanicBecomesInternalError(t *testing.T) {
	s, svc := newTestServer(t)
	svc.PanicHistory = true

	w, out := do(t, s, http.MethodGet, batchGet("models.getAvailable,chat.history", ""), "", rpctest.Token)
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].Result)
	require.NotNil(t, out[1].Error)
	assert.Equal(t, "INTERNAL", out[1].Error.JSON.Data.Code)
	assert.Equal(t, "internal error", out[1].Error.JSON.Message)
	assert.Equal(t, "chat.history", out[1].Error.JSON.Data.Path)

	// the server keeps serving
	svc.PanicHistory = false
	w, _ = do(t, s, http.MethodGet, batchGet("chat.history", ""), "", rpctest.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWrongMethod(t *testing.T) {
	s, _ := newTestServer(t)

	w, out := do(t, s, http.MethodGet, batchGet("chat.send", ""), "", rpctest.Token)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "METHOD_NOT_SUPPORTED", out[0].Error.JSON.Data.Code)

	w, _ = do(t, s, http.MethodPost, "/api/trpc/chat.history?batch=1", `{}`, rpctest.Token)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMalformedInput(t *testing.T) {
	s, _ := newTestServer(t)

	w, out := do(t, s, http.MethodPost, "/api/trpc/chat.send,chat.deleteMessage?batch=1", `{"0":`, rpctest.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, out, 2)
	assert.Equal(t, "PARSE_ERROR", out[0].Error.JSON.Data.Code)
	assert.Equal(t, "chat.deleteMessage", out[1].Error.JSON.Data.Path)
}

func TestNonBatchRequest(t *testing.T) {
	s, _ := newTestServer(t)

	input := url.QueryEscape(`{"json":null}`)
	w, out := do(t, s, http.MethodGet, "/api/trpc/auth.getUser?input="+input, "", rpctest.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, strings.HasPrefix(strings.TrimSpace(w.Body.String()), "["))

	var u struct{ Email string }
	require.NoError(t, json.Unmarshal(out[0].Result.Data.JSON, &u))
	assert.Equal(t, rpctest.Email, u.Email)

	w, _ = do(t, s, http.MethodGet, "/api/trpc/auth.getUser,chat.history", "", rpctest.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMessage(t *testing.T) {
	s, _ := newTestServer(t)

	_, out := do(t, s, http.MethodPost, "/api/trpc/chat.send?batch=1", `{"0":{"json":{"modelTag":"echo","prompt":"x"}}}`, rpctest.Token)
	var sent struct {
		UserMessage struct{ ID string } `json:"userMessage"`
	}
	require.NoError(t, json.Unmarshal(out[0].Result.Data.JSON, &sent))

	body := `{"0":{"json":{"messageId":"` + sent.UserMessage.ID + `"}}}`
	w, out := do(t, s, http.MethodPost, "/api/trpc/chat.deleteMessage?batch=1", body, rpctest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, string(out[0].Result.Data.JSON))

	_, out = do(t, s, http.MethodGet, batchGet("chat.history", ""), "", rpctest.Token)
	var history []struct{ ID string }
	require.NoError(t, json.Unmarshal(out[0].Result.Data.JSON, &history))
	require.Len(t, history, 1)
}

func TestChatInputsNeedEveryField(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"send without input", "/api/trpc/chat.send?batch=1", ""},
		{"send without prompt", "/api/trpc/chat.send?batch=1", `{"0":{"json":{"modelTag":"echo"}}}`},
		{"delete without id", "/api/trpc/chat.deleteMessage?batch=1", `{"0":{"json":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := do(t, s, http.MethodPost, tt.target, tt.body, rpctest.Token)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, out[0].Error)
			assert.Equal(t, "BAD_REQUEST", out[0].Error.JSON.Data.Code)
		})
	}

	_, out := do(t, s, http.MethodGet, batchGet("chat.history", ""), "", rpctest.Token)
	assert.JSONEq(t, `[]`, string(out[0].Result.Data.JSON))
}

func TestBatchStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, batchStatus(nil))
	assert.Equal(t, http.StatusOK, batchStatus([]response{{status: 200}, {status: 200}}))
	assert.Equal(t, http.StatusNotFound, batchStatus([]response{{status: 404}}))
	assert.Equal(t, http.StatusMultiStatus, batchStatus([]response{{status: 401}, {status: 400}}))
}
