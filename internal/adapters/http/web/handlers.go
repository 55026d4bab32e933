package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/csrf"

	"github.com/okian/voxmood/internal/domain/analysis"
	"github.com/okian/voxmood/internal/domain/render"
	"github.com/okian/voxmood/internal/domain/session"
	"github.com/okian/voxmood/internal/domain/upload"
	"github.com/okian/voxmood/pkg/logger"
)

// openSession resolves the caller's session and refreshes its cookie.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) (*session.Machine, string) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	m, id, created := s.deps.Open(r.Context(), id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return m, id
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	m, id := s.openSession(w, r)
	st := m.Snapshot()

	data := &pageData{
		CSRFField:     csrf.TemplateField(r),
		Phase:         st.Phase.String(),
		Analyzing:     st.Phase == session.PhaseAnalyzing,
		HasResult:     st.Phase == session.PhaseResulted,
		FileName:      st.FileName,
		Rejection:     st.Rejection,
		MaxSize:       humanize.IBytes(uint64(upload.MaxFileSize)),
		PollPeriod:    s.pollPeriod,
		Notifications: toNotificationViews(s.deps.Drain(r.Context(), id)),
		View:          render.Render(st.Result, st.Phase == session.PhaseAnalyzing),
	}
	if st.FileName != "" {
		data.FileSize = humanize.IBytes(uint64(st.FileSize))
	}

	if err := s.page.executeHTTP(w, data); err != nil {
		s.logger.Error(r.Context(), "page render failed", logger.Error(err))
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	m, _ := s.openSession(w, r)

	files, src, err := readUpload(r)
	if err != nil {
		s.logger.Warn(r.Context(), "unreadable upload", logger.Error(err))
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || bodyTooLarge(r) {
			http.Error(w, upload.ReasonSize, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid upload request", http.StatusBadRequest)
		return
	}
	m.Offer(r.Context(), src, files)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	m, _ := s.openSession(w, r)
	m.Reset(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// readUpload collects the "file" parts and the optional "source" field.
// Only the first file's bytes are read, and only when it fits the size
// limit; the gate needs nothing more.
func readUpload(r *http.Request) ([]upload.Candidate, upload.Source, error) {
	const op = "readUpload"

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, upload.SourcePicker, WrapKind(op, ErrBadRequest, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	src := upload.ParseSource(r.FormValue("source"))
	headers := r.MultipartForm.File["file"]
	files := make([]upload.Candidate, 0, len(headers))
	for i, fh := range headers {
		c := upload.Candidate{Name: fh.Filename, Size: fh.Size}
		if i == 0 && fh.Size <= upload.MaxFileSize {
			data, err := readPart(fh)
			if err != nil {
				return nil, src, WrapKind(op, ErrBadRequest, err)
			}
			c.Data = data
		}
		files = append(files, c)
	}
	return files, src, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, upload.MaxFileSize+1))
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn(r.Context(), "csrf check failed",
		logger.String("path", r.URL.Path),
		logger.Error(csrf.FailureReason(r)))

	if r.ContentLength > s.maxRequest || bodyTooLarge(r) {
		http.Error(w, upload.ReasonSize, http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "Forbidden - invalid or missing form token, reload the page and try again", http.StatusForbidden)
}

type notificationJSON struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type sessionResponse struct {
	Phase         string             `json:"phase"`
	FileName      string             `json:"file_name,omitempty"`
	FileSize      int64              `json:"file_size,omitempty"`
	Rejection     string             `json:"rejection,omitempty"`
	Result        *analysis.Result   `json:"result"`
	Notifications []notificationJSON `json:"notifications"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	m, id := s.openSession(w, r)
	st := m.Snapshot()

	resp := sessionResponse{
		Phase:         st.Phase.String(),
		FileName:      st.FileName,
		FileSize:      st.FileSize,
		Rejection:     st.Rejection,
		Result:        st.Result,
		Notifications: []notificationJSON{},
	}
	for _, n := range s.deps.Drain(r.Context(), id) {
		resp.Notifications = append(resp.Notifications, notificationJSON{Kind: n.Kind.String(), Message: n.Message, At: n.At})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.deps.GetStats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
