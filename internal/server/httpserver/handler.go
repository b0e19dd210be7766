package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/rpc"
	"github.com/dmitrijs2005/multichat/internal/superjson"
	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20

type resultData struct {
	Data superjson.Envelope `json:"data"`
}

// response is one element of a batch reply: exactly one field is set.
type response struct {
	Result *resultData         `json:"result,omitempty"`
	Error  *superjson.Envelope `json:"error,omitempty"`

	status int
}

func (s *HTTPServer) handle(kind rpc.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := strings.Split(c.Param("procedures"), ",")
		batch := c.Query("batch") == "1"

		if !batch && len(names) > 1 {
			s.reply(c, false, []response{s.failure(codeParseError, "batching is not enabled; pass batch=1", c.Param("procedures"))})
			return
		}

		inputs, err := readInputs(c, batch)
		if err != nil {
			out := make([]response, len(names))
			for i, name := range names {
				out[i] = s.failure(codeParseError, err.Error(), name)
			}
			s.reply(c, batch, out)
			return
		}

		// resolved once per HTTP request, shared by every call of the batch
		identity := s.resolver.Resolve(c.Request.Context(), c.GetHeader(common.AuthorizationHeaderName))
		ctx := auth.WithIdentity(c.Request.Context(), identity)

		out := make([]response, len(names))
		var wg sync.WaitGroup
		for i, name := range names {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				// gin.Recovery does not reach this goroutine
				defer func() {
					if p := recover(); p != nil {
						s.logger.Error(ctx, "procedure panicked", "path", name, "panic", fmt.Sprint(p))
						out[i] = s.failure(common.KindInternal, common.ErrorInternal.Error(), name)
					}
				}()
				out[i] = s.call(ctx, kind, name, inputs[strconv.Itoa(i)])
			}(i, name)
		}
		wg.Wait()

		s.reply(c, batch, out)
	}
}

func (s *HTTPServer) call(ctx context.Context, kind rpc.Kind, name string, input superjson.Envelope) response {
	p, ok := s.registry.Lookup(name)
	if !ok {
		return s.failure(common.KindNotFound, fmt.Sprintf("No %q-procedure on path %q", kind, name), name)
	}
	if p.Kind != kind {
		return s.failure(codeMethodNotSupported, fmt.Sprintf("Unsupported %s method for %s %q", methodFor(kind), p.Kind, name), name)
	}

	result, err := p.Call(ctx, func(v any) error { return superjson.Unmarshal(input, v) })
	if err != nil {
		errKind := common.KindOf(err)
		msg := err.Error()
		if errKind == common.KindInternal {
			s.logger.Error(ctx, "procedure failed", "path", name, "error", msg)
			msg = common.ErrorInternal.Error()
		}
		return s.failure(errKind, msg, name)
	}

	env, err := superjson.Marshal(result)
	if err != nil {
		s.logger.Error(ctx, "encoding result failed", "path", name, "error", err.Error())
		return s.failure(common.KindInternal, common.ErrorInternal.Error(), name)
	}
	return response{Result: &resultData{Data: env}, status: http.StatusOK}
}

func (s *HTTPServer) failure(kind common.ErrorKind, message, path string) response {
	shape := newErrorShape(kind, message, path)
	env, err := superjson.Marshal(shape)
	if err != nil {
		// errorShape holds only strings and ints
		panic(err)
	}
	return response{Error: &env, status: shape.Data.HTTPStatus}
}

// reply writes a batch as an array, or a single response as an object.
func (s *HTTPServer) reply(c *gin.Context, batch bool, out []response) {
	status := batchStatus(out)
	if batch {
		c.JSON(status, out)
		return
	}
	c.JSON(status, out[0])
}

// batchStatus is 200 when every call succeeded, the shared status when all
// calls ended with the same one, and 207 otherwise.
func batchStatus(out []response) int {
	status := 0
	for _, r := range out {
		switch {
		case status == 0:
			status = r.status
		case status != r.status:
			return http.StatusMultiStatus
		}
	}
	if status == 0 {
		return http.StatusOK
	}
	return status
}

func methodFor(kind rpc.Kind) string {
	if kind == rpc.Mutation {
		return http.MethodPost
	}
	return http.MethodGet
}

// readInputs returns the per-call envelopes keyed by batch index. GET
// requests carry them in the input query parameter, POST requests in the
// body. A non-batched request stores its single envelope under "0".
func readInputs(c *gin.Context, batch bool) (map[string]superjson.Envelope, error) {
	var raw []byte
	if c.Request.Method == http.MethodGet {
		raw = []byte(c.Query("input"))
	} else {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		raw = body
	}

	inputs := map[string]superjson.Envelope{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return inputs, nil
	}

	if !batch {
		var env superjson.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("malformed input: %w", err)
		}
		inputs["0"] = env
		return inputs, nil
	}

	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("malformed batch input: %w", err)
	}
	return inputs, nil
}
