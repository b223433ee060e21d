package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Kuroukai/Kuroukai-free-api/src/middleware"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

// bindResult is the payload rendered by the bind script
type bindResult struct {
	Msg  string `json:"msg"`
	Code int    `json:"code"`
}

var (
	bindOK       = bindResult{Msg: "Binding is ok, you can now use it normally.", Code: http.StatusOK}
	bindExpired  = bindResult{Msg: "Binding failed, key has expired.", Code: http.StatusGone}
	bindNotFound = bindResult{Msg: "Binding failed, key not found.", Code: http.StatusNotFound}
)

const bindScript = `// Kuroukai Free API - Key Validation
document.body.style.backgroundColor = '#000000';
document.body.style.color = '#ffffff';
document.body.style.fontFamily = 'monospace';
document.body.style.padding = '20px';
document.body.innerHTML = '<pre>' + JSON.stringify(%[1]s, null, 2) + '</pre>';
console.log(%[1]s);
`

const testPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Kuroukai Key Validation</title>
</head>
<body>
    <script>
      fetch('/bind/%s.js')
        .then(response => {
          if (!response.ok) {
            throw new Error('Failed to load validation script');
          }
          return response.text();
        })
        .then(scriptContent => {
          const script = document.createElement('script');
          script.textContent = scriptContent;
          document.head.appendChild(script);
        })
        .catch(error => {
          document.body.style.backgroundColor = '#000000';
          document.body.style.color = '#ff0000';
          document.body.style.fontFamily = 'monospace';
          document.body.style.padding = '20px';
          document.body.innerHTML = '<pre>Error loading validation script: ' + error.message + '</pre>';
        });
    </script>
</body>
</html>
`

const testPageInvalidID = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Kuroukai Key Validation - Error</title>
</head>
<body style="background-color: #000000; color: #ff0000; font-family: monospace; padding: 20px;">
    <pre>Error: Invalid key ID format</pre>
</body>
</html>
`

// BindHandler serves the browser-facing bind script and test page
type BindHandler struct {
	keys *services.KeyService
}

// NewBindHandler creates a new bind handler
func NewBindHandler(keys *services.KeyService) *BindHandler {
	return &BindHandler{keys: keys}
}

// HandleBind serves GET /bind/:keyId.js. Binding a valid key records a usage.
func (bh *BindHandler) HandleBind(c *gin.Context) {
	script := c.Param("script")
	if !strings.HasSuffix(script, ".js") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found", "code": http.StatusNotFound})
		return
	}
	keyID := strings.TrimSuffix(script, ".js")

	result := bindNotFound
	v, err := bh.keys.Validate(c.Request.Context(), keyID)
	switch {
	case err == nil && v.Valid:
		result = bindOK
	case err == nil:
		result = bindExpired
	case !errors.Is(err, services.ErrKeyNotFound):
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("bind lookup failed")
	}

	payload, _ := json.Marshal(result)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", fmt.Appendf(nil, bindScript, payload))
}

// parseKeyID accepts only canonical RFC 4122 UUIDs (versions 1 to 5)
func parseKeyID(raw string) (uuid.UUID, bool) {
	if len(raw) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id.Variant() != uuid.RFC4122 || id.Version() < 1 || id.Version() > 5 {
		return uuid.Nil, false
	}
	return id, true
}

// HandleTestPage serves an HTML page that loads the bind script for keyId
func (bh *BindHandler) HandleTestPage(c *gin.Context) {
	id, ok := parseKeyID(c.Param("keyId"))
	if !ok {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(testPageInvalidID))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", fmt.Appendf(nil, testPage, id.String()))
}
