package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/handlers"
	"github.com/maxhully/mosaic"
	"github.com/maxhully/mosaic/avatargen"
	"github.com/rs/zerolog/log"
)

type App struct {
	renderer *mosaic.Renderer
	db       *mosaic.DB
	jobs     chan<- mosaic.AvatarJob
}

func NewApp(db *mosaic.DB, jobs chan<- mosaic.AvatarJob, avatar avatargen.Config) *App {
	renderer, err := mosaic.NewRenderer(avatar)
	if err != nil {
		log.Fatal().Err(err).Msg("error from NewRenderer")
	}
	return &App{
		renderer: renderer,
		db:       db,
		jobs:     jobs,
	}
}

func errorResponse(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("sending 500 error")
	http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
}

func (app *App) RenderTemplate(w http.ResponseWriter, name string, data any) {
	if err := app.renderer.ExecuteTemplate(w, name, data); err != nil {
		errorResponse(w, err)
	}
}

type userPage struct {
	User      *mosaic.User
	Queued    bool
	CSRFField template.HTML
}

func (app *App) ShowUser(w http.ResponseWriter, r *http.Request) {
	conn := app.db.Get(r.Context())
	defer app.db.Put(conn)
	user, err := mosaic.GetUserByName(conn, r.PathValue("username"))
	if err != nil {
		errorResponse(w, err)
		return
	}
	if user == nil {
		http.NotFound(w, r)
		return
	}
	app.RenderTemplate(w, "user.html", userPage{
		User:      user,
		Queued:    r.URL.Query().Get("queued") != "",
		CSRFField: csrf.TemplateField(r),
	})
}

// RegenerateAvatar queues a job for a new avatar with a fresh seed. The worker swaps
// it in once it's ready.
func (app *App) RegenerateAvatar(w http.ResponseWriter, r *http.Request) {
	conn := app.db.Get(r.Context())
	user, err := mosaic.GetUserByName(conn, r.PathValue("username"))
	app.db.Put(conn)
	if err != nil {
		errorResponse(w, err)
		return
	}
	if user == nil {
		http.NotFound(w, r)
		return
	}
	seed, err := randomHex()
	if err != nil {
		errorResponse(w, err)
		return
	}
	select {
	case app.jobs <- mosaic.AvatarJob{UserName: user.Name, Seed: seed}:
	default:
		http.Error(w, "Too many avatars being generated right now, try again later", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, user.URL()+"?queued=1", http.StatusSeeOther)
}

func randomHex() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (app *App) ServeUpload(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(r.PathValue("upload_id"), ".", 2)
	if len(parts) != 2 || strings.ToLower(parts[1]) != "png" {
		http.NotFound(w, r)
		return
	}
	uploadID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	conn := app.db.Get(r.Context())
	defer app.db.Put(conn)
	upload, err := mosaic.GetUpload(conn, uploadID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	if upload == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", upload.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(upload.Contents)))
	w.Write(upload.Contents)
}

func (app *App) Handler(secretKey []byte) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /u/{username}/{$}", app.ShowUser)
	mux.HandleFunc("POST /u/{username}/avatar", app.RegenerateAvatar)
	mux.HandleFunc("GET /uploads/{upload_id}", app.ServeUpload)

	csrfProtect := csrf.Protect(secretKey, csrf.FieldName("csrf_token"))
	accessLog := log.Logger.With().Str("component", "http").Logger()
	return handlers.LoggingHandler(accessLog, mosaic.SafeHeaderMiddleware(csrfProtect(mux)))
}

// startWorkers runs n workers over jobs. The returned func blocks until every one of
// them has stopped, which happens once ctx is done or jobs is closed.
func startWorkers(ctx context.Context, worker *mosaic.AvatarWorker, n int, jobs <-chan mosaic.AvatarJob) (wait func()) {
	errChans := make([]<-chan error, 0, n)
	for range max(n, 1) {
		errChans = append(errChans, worker.Run(ctx, jobs))
	}
	return func() {
		for _, errs := range errChans {
			// Run already logs failed jobs.
			for range errs {
			}
		}
	}
}

func serve(ctx context.Context, cfg config, worker *mosaic.AvatarWorker) error {
	ctx, cancel := context.WithCancel(ctx)
	jobs := make(chan mosaic.AvatarJob, 16)
	wait := startWorkers(ctx, worker, cfg.Workers, jobs)
	// The caller closes the DB once we return, so no worker may still hold a connection.
	defer wait()
	defer cancel()

	app := NewApp(worker.DB, jobs, cfg.Avatar)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Handler(cfg.SecretKey),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", cfg.Addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
