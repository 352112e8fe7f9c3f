package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/services/ingest"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

const maxCredentialsBody = 4 << 10

type credentialsRequest struct {
	APIKey string `json:"api_key"`
}

func (a *API) createSession(w http.ResponseWriter, _ *http.Request) {
	s := a.sessions.Create()
	writeJSON(w, http.StatusCreated, toSessionView(s))
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !a.sessions.Delete(id) {
		writeError(w, common.NotFoundError("session "+id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) putCredentials(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req credentialsRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCredentialsBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, common.InvalidInputError("invalid JSON body"))
		return
	}
	v := common.NewValidator().Field("api_key", req.APIKey, common.Required, common.MaxLength(512))
	if err := common.ValidateAndReturnError(v); err != nil {
		writeError(w, err)
		return
	}
	sess.SetCredentials(llm.Credentials{APIKey: req.APIKey})
	a.logger.Info("session.credentials.set", "session_id", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteCredentials(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess.ClearCredentials()
	a.logger.Info("session.credentials.cleared", "session_id", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.opts.MaxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, common.NewAppError(common.CodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", a.opts.MaxUploadBytes), common.ErrPayloadTooLarge))
			return
		}
		writeError(w, common.InvalidInputError("expected a multipart form with one or more files"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		writeError(w, common.InvalidInputError("no files in form field \"files\""))
		return
	}
	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(fh)
		if err != nil {
			writeError(w, err)
			return
		}
		uploads = append(uploads, up)
	}

	results, err := a.ingest.AddDocuments(r.Context(), id, uploads)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": results})
}

func readUpload(fh *multipart.FileHeader) (ingest.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return ingest.Upload{}, common.WrapError(err, "open upload "+fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return ingest.Upload{}, common.WrapError(err, "read upload "+fh.Filename)
	}
	mt := fh.Header.Get("Content-Type")
	if mt == "application/octet-stream" {
		mt = ""
	}
	return ingest.Upload{Filename: fh.Filename, Data: data, MediaType: mt}, nil
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": toDocumentViews(sess.Documents().All())})
}

// startRun queues a run and answers 202, or with ?wait=true runs it inline.
func (a *API) startRun(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		snap, err := a.runs.RunNow(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRunView(snap))
		return
	}
	run, err := a.runs.Start(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+id+"/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, toRunView(run.Snapshot()))
}

func (a *API) listRuns(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	snaps := sess.Runs()
	views := make([]runView, 0, len(snaps))
	for _, s := range snaps {
		views = append(views, toRunView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": views})
}

func (a *API) getRun(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	run, err := sess.Run(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunView(run.Snapshot()))
}

func (a *API) exportXLSX(w http.ResponseWriter, r *http.Request) {
	sess, err := a.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := a.export.ExportRunsXLSX(r.Context(), sess.ID, sess.Runs())
	if err != nil {
		writeError(w, err)
		return
	}
	name := fmt.Sprintf("notas-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *API) session(r *http.Request) (*session.Session, error) {
	id, err := sessionIDParam(r)
	if err != nil {
		return nil, err
	}
	return a.sessions.Get(id)
}

func sessionIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "sessionID")
	v := common.NewValidator().Field("session_id", id, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return "", err
	}
	return id, nil
}
