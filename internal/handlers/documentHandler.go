package handlers

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/akolanti/CyberScholar/internal/adapter"
	"github.com/akolanti/CyberScholar/internal/adapter/utils"
	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
	"github.com/akolanti/CyberScholar/internal/rag"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var (
	documents    rag.Service
	documentOnce sync.Once
	logDH        = logger_i.NewLogger("DocumentHandler")
)

// multipart overhead on top of the file itself
const multipartSlack = 1 << 20

func InitDocumentHandler(ragService rag.Service) {
	documentOnce.Do(func() {
		documents = ragService
		logDH.Info("Starting document handler")
	})
}

// PostDocumentHandler godoc
// @Summary      Upload a document
// @Description  Receives a file via multipart/form-data, extracts, chunks and indexes it for the owner. Ingestion is synchronous.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Owner-Id    header    string  true   "Owner id"
// @Param        document      formData  file    true   "The pdf, txt, md or json file to upload"
// @Param        content_type  formData  string  false  "Declared type, defaults to the file extension"
// @Success      201  {object}  api.IngestResponse
// @Failure      400  {object}  api.JobResponse  "Missing file, unsupported type or file too large"
// @Failure      422  {object}  api.JobResponse  "Text could not be extracted"
// @Failure      500  {object}  api.JobResponse  "Storage error"
// @Router       /documents [post]
func PostDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, r, "", coreErrors.ErrSizeExceeded)
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logDH.Error("Couldn't remove multipart temp files", "error", err)
		}
	}()

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	if fileMetadata.Size > config.MaxUploadSize {
		writeServiceError(w, r, fileMetadata.Filename, coreErrors.ErrSizeExceeded)
		return
	}
	data, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, fileMetadata.Filename, "Read error")
		return
	}

	result, err := documents.IngestDocument(ctx, ownerFromContext(ctx), fileMetadata.Filename, r.FormValue("content_type"), data)
	if err != nil {
		writeServiceError(w, r, fileMetadata.Filename, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToIngestResponse(result))
}

// ReindexHandler godoc
// @Summary      Rebuild the retrieval index
// @Description  Re-chunks every stored document whose file still matches its digest. The index lives in memory, so this restores search after a restart.
// @Tags         Documents
// @Produce      json
// @Param        X-Owner-Id  header  string  true  "Owner id"
// @Success      200  {object}  api.ReindexResponse
// @Router       /documents/reindex [post]
func ReindexHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	indexed, err := documents.Reindex(ctx, ownerFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ReindexResponse{Indexed: indexed})
}

// ListDocumentsHandler godoc
// @Summary      List documents
// @Description  Lists the owner's documents, newest first.
// @Tags         Documents
// @Produce      json
// @Param        X-Owner-Id  header  string  true  "Owner id"
// @Success      200  {object}  api.DocumentListResponse
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	docs, err := documents.ListDocuments(ctx, ownerFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(docs))
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes the document's chunks, stored file and record.
// @Tags         Documents
// @Param        X-Owner-Id  header  string  true  "Owner id"
// @Param        source      path    string  true  "Document source"
// @Success      204
// @Failure      404  {object}  api.JobResponse  "Document not found"
// @Router       /documents/{source} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	source := utils.GetChiURLParam(r, "source")
	if err := documents.DeleteDocument(ctx, ownerFromContext(ctx), source); err != nil {
		writeServiceError(w, r, source, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IntegrityHandler godoc
// @Summary      Verify document integrity
// @Description  Recomputes the stored file's SHA-256 and compares it with the digest taken at upload.
// @Tags         Documents
// @Produce      json
// @Param        X-Owner-Id  header  string  true  "Owner id"
// @Param        source      path    string  true  "Document source"
// @Success      200  {object}  api.IntegrityResponse
// @Router       /documents/{source}/integrity [get]
func IntegrityHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	source := utils.GetChiURLParam(r, "source")
	report, err := documents.VerifyIntegrity(ctx, ownerFromContext(ctx), source)
	if err != nil {
		writeServiceError(w, r, source, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToIntegrityResponse(report))
}

// RetrieveHandler godoc
// @Summary      Retrieve matching chunks
// @Description  Ranks the owner's chunks against the query by word overlap.
// @Tags         Documents
// @Produce      json
// @Param        X-Owner-Id  header  string  true   "Owner id"
// @Param        q           query   string  true   "Query text"
// @Param        k           query   int     false  "Number of results, default 5, max 50"
// @Success      200  {object}  api.RetrieveResponse
// @Failure      400  {object}  api.JobResponse
// @Router       /retrieve [get]
func RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	req := api.RetrieveRequest{Query: r.URL.Query().Get("q")}
	k, _, err := utils.QueryInt(r, "k")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "k must be a number")
		return
	}
	req.K = k
	if err := api.Validate(req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}

	records, err := documents.Retrieve(ctx, ownerFromContext(ctx), req.Query, req.K)
	if err != nil {
		writeServiceError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToRetrieveResponse(req.Query, records))
}
