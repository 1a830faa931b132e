package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/pngme/internal/commands"
	"github.com/danmuck/pngme/internal/fingerprint"
	"github.com/danmuck/pngme/internal/payload"
	"github.com/danmuck/pngme/internal/png"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": "0.1.0",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.POST("/encode", s.handleEncode)
	v1.POST("/decode", s.handleDecode)
	v1.POST("/remove", s.handleRemove)
	v1.POST("/chunks", s.handleChunks)
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, "too_large", err)
			return nil, false
		}
		s.fail(c, http.StatusBadRequest, "io", err)
		return nil, false
	}
	return body, true
}

func (s *Server) chunkType(c *gin.Context) string {
	ct := c.Query("type")
	if ct == "" {
		ct = s.cfg.ChunkType
	}
	c.Set("chunk_type", ct)
	return ct
}

func (s *Server) handleEncode(c *gin.Context) {
	ct := s.chunkType(c)
	message, ok := c.GetQuery("message")
	if !ok {
		s.fail(c, http.StatusBadRequest, "request", errors.New("message is required"))
		return
	}
	compress := s.cfg.Compress
	if raw := c.Query("compress"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.fail(c, http.StatusBadRequest, "request", err)
			return
		}
		compress = v
	}
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	sink := &commands.BufferSink{Label: "response"}
	req := commands.EncodeRequest{
		ChunkType: ct,
		Message:   message,
		Options: payload.Options{
			Compress:   compress,
			Passphrase: c.GetHeader(HeaderPassphrase),
		},
	}
	if _, err := s.runner.Encode(commands.BytesSource{Label: "request", Data: body}, sink, req); err != nil {
		s.failErr(c, err)
		return
	}
	s.writePNG(c, sink.Buf.Bytes())
}

func (s *Server) handleDecode(c *gin.Context) {
	ct := s.chunkType(c)
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	msg, err := s.runner.Decode(commands.BytesSource{Label: "request", Data: body}, ct, c.GetHeader(HeaderPassphrase))
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chunk_type": ct, "message": msg})
}

func (s *Server) handleRemove(c *gin.Context) {
	ct := s.chunkType(c)
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	sink := &commands.BufferSink{Label: "response"}
	if _, err := s.runner.Remove(commands.BytesSource{Label: "request", Data: body}, sink, ct); err != nil {
		s.failErr(c, err)
		return
	}
	s.writePNG(c, sink.Buf.Bytes())
}

func (s *Server) handleChunks(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	l, err := s.runner.List(commands.BytesSource{Label: "request", Data: body})
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.Header(HeaderCID, l.CID)
	c.JSON(http.StatusOK, l)
}

func (s *Server) writePNG(c *gin.Context, b []byte) {
	c.Header(HeaderCID, fingerprint.CID(b))
	c.Data(http.StatusOK, ContentTypePNG, b)
}

func (s *Server) failErr(c *gin.Context, err error) {
	s.fail(c, statusFor(err), commands.Result(err), err)
}

func (s *Server) fail(c *gin.Context, status int, kind string, err error) {
	c.Set("error_kind", kind)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func statusFor(err error) int {
	switch png.KindOf(err) {
	case png.KindTag, png.KindFormat, png.KindDecode:
		return http.StatusBadRequest
	case png.KindIntegrity:
		return http.StatusUnprocessableEntity
	case png.KindNotFound:
		return http.StatusNotFound
	}
	switch {
	case errors.Is(err, payload.ErrPassphraseRequired), errors.Is(err, payload.ErrOpenFailed):
		return http.StatusForbidden
	case errors.Is(err, payload.ErrCorruptEnvelope):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
