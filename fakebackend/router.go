package fakebackend

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"temporal-fiscal-request/shared"
)

// maxUploadSize bounds an uploaded XML.
const maxUploadSize = 5 << 20

type handler struct {
	store  *Store
	logger *zap.Logger
}

// NewRouter serves the document and fiscal backends under /api.
func NewRouter(store *Store, logger *zap.Logger) *gin.Engine {
	h := &handler{store: store, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger))

	api := router.Group("/api")
	api.POST("/NotasFiscais/processar-xml", h.processXML)
	api.POST("/SolicitacaoProcessoFiscal", h.createRequest)
	api.GET("/SolicitacaoProcessoFiscal/:id", h.getRequest)
	api.GET("/ProcessoFiscal/solicitacao/:id", h.getFiscalProcess)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

func (h *handler) processXML(c *gin.Context) {
	header, err := c.FormFile("arquivo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Arquivo XML não enviado", "timestamp": timestamp()})
		return
	}
	if header.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "Arquivo muito grande", "timestamp": timestamp()})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível abrir o arquivo XML"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível ler o arquivo XML"})
		return
	}

	doc, err := ParseNFe(content)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrNotNFe) {
			msg = "O arquivo enviado não é uma NF-e válida"
		}
		h.logger.Info("Invoice XML refused", zap.String("fileName", header.Filename), zap.Error(err))
		c.JSON(http.StatusOK, shared.XMLProcessResponse{
			Success:   false,
			Message:   msg,
			Errors:    []string{msg},
			Timestamp: timestamp(),
		})
		return
	}

	doc = h.store.AddDocument(header.Filename, content, doc)
	h.logger.Info("Invoice XML stored",
		zap.String("documentId", doc.ID),
		zap.String("accessKey", doc.AccessKey),
		zap.Float64("totalValue", doc.TotalValue),
	)
	c.JSON(http.StatusOK, shared.XMLProcessResponse{
		Success:   true,
		Data:      doc,
		Message:   "XML processado com sucesso",
		Timestamp: timestamp(),
	})
}

func (h *handler) createRequest(c *gin.Context) {
	var body shared.FiscalRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Corpo da requisição inválido", "errors": []string{err.Error()}})
		return
	}

	created, errs := h.store.CreateRequest(body)
	if len(errs) > 0 {
		c.JSON(http.StatusOK, shared.CreateRequestResponse{
			Success:   false,
			Message:   "Solicitação inválida",
			Errors:    errs,
			Timestamp: timestamp(),
		})
		return
	}

	h.logger.Info("Fiscal request created", zap.Int64("requestId", created.ID))
	c.JSON(http.StatusCreated, shared.CreateRequestResponse{
		Success:   true,
		Data:      created,
		Message:   "Solicitação criada",
		Timestamp: timestamp(),
	})
}

func (h *handler) getRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	detail, found := h.store.ReadRequest(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Solicitação não encontrada"})
		return
	}
	c.JSON(http.StatusOK, shared.RequestDetailResponse{
		Success:   true,
		Data:      &detail,
		Timestamp: timestamp(),
	})
}

func (h *handler) getFiscalProcess(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	process, found := h.store.LookupFiscalProcess(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Solicitação não encontrada"})
		return
	}
	c.JSON(http.StatusOK, shared.FiscalProcessResponse{
		Success:   true,
		Data:      process,
		Timestamp: timestamp(),
	})
}

func requestID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Identificador inválido"})
		return 0, false
	}
	return id, true
}

// RequestIDMiddleware tags each request with an X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		requestID, _ := c.Get("request_id")
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Any("request_id", requestID),
		)
	}
}
