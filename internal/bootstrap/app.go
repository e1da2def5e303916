package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/assessments"
	"hemotwin-backend/internal/healthdata"
	"hemotwin-backend/internal/ocr"
	"hemotwin-backend/internal/ocr/ocrspace"
	"hemotwin-backend/internal/patients"
	"hemotwin-backend/internal/queue"
	"hemotwin-backend/internal/scans"
	"hemotwin-backend/internal/services/health"
	"hemotwin-backend/internal/shared/config"
	"hemotwin-backend/internal/shared/server"
	"hemotwin-backend/internal/shared/storage/db"
	"hemotwin-backend/internal/shared/storage/docstore"
	"hemotwin-backend/internal/shared/storage/docstore/firestore"
	"hemotwin-backend/internal/shared/storage/docstore/rtdb"
	"hemotwin-backend/internal/shared/storage/object"
	localstore "hemotwin-backend/internal/shared/storage/object/local"
	s3store "hemotwin-backend/internal/shared/storage/object/s3"
	"hemotwin-backend/internal/shared/telemetry"
	"hemotwin-backend/internal/textsource"
	"hemotwin-backend/internal/uploads"
)

// App holds the wired services shared by the API, the worker and the Lambda entrypoints.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Docs   docstore.Store
	Store  object.ObjectStore
	OCR    ocr.Provider
	Queue  queue.Client

	Patients    *patients.Service
	Health      *healthdata.Service
	Scans       *scans.Service
	Assessments *assessments.Service

	PatientHandler    *patients.Handler
	HealthHandler     *healthdata.Handler
	ScanHandler       *scans.Handler
	UploadHandler     *uploads.Handler
	AssessmentHandler *assessments.Handler
}

// Build connects storage, picks providers from cfg and mounts the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	if app.Docs, err = buildDocStore(ctx, cfg, sqlDB); err != nil {
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.OCR, err = buildOCR(cfg); err != nil {
		return nil, err
	}
	if app.Queue, err = buildQueue(ctx, cfg); err != nil {
		return nil, err
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Health:            health.NewService(sqlDB),
		Patients:          app.Patients,
		PatientHandler:    app.PatientHandler,
		HealthHandler:     app.HealthHandler,
		ScanHandler:       app.ScanHandler,
		UploadHandler:     app.UploadHandler,
		AssessmentHandler: app.AssessmentHandler,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":         cfg.Env,
		"docstore":    cfg.DocStoreType,
		"objectStore": cfg.ObjectStoreType,
		"database":    sqlDB != nil,
		"queue":       app.Queue != nil,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.db_skipped", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		if cfg.DocStoreType == "firebase" || cfg.DocStoreType == "firestore" {
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Error("bootstrap.db_fallback", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildDocStore(ctx context.Context, cfg config.Config, sqlDB *sql.DB) (docstore.Store, error) {
	switch cfg.DocStoreType {
	case "firebase":
		return rtdb.New(ctx, cfg.FirebaseDatabaseURL, cfg.FirebaseCredentialsFile)
	case "firestore":
		return firestore.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	case "postgres":
		if sqlDB != nil {
			return &docstore.PGStore{DB: sqlDB}, nil
		}
		if !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("DOCSTORE=postgres requires a database")
		}
	}
	return docstore.NewMemoryStore(), nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildOCR(cfg config.Config) (ocr.Provider, error) {
	if cfg.OCRProvider != "ocrspace" || cfg.OCRSpaceAPIKey == "" {
		if !isDevLike(cfg.Env) {
			telemetry.Error("bootstrap.ocr_unconfigured", map[string]any{"provider": cfg.OCRProvider})
		}
		return ocr.Placeholder{}, nil
	}
	client, err := ocrspace.New(ocrspace.Config{
		APIKey:   cfg.OCRSpaceAPIKey,
		URL:      cfg.OCRSpaceURL,
		Language: cfg.OCRLanguage,
		Timeout:  cfg.OCRTimeout,
	})
	if err != nil {
		return nil, err
	}
	return ocr.NewRetrying(client, cfg.OCRMaxAttempts, cfg.OCRRetryDelay), nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.QueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
}

func buildServices(app *App) {
	var scanRepo scans.Repo
	if app.DB != nil {
		scanRepo = &scans.PGRepo{DB: app.DB}
	} else {
		scanRepo = scans.NewMemoryRepo()
	}

	app.Health = healthdata.NewService(app.Docs)
	app.Patients = patients.NewService(app.Docs, app.Health)
	app.Scans = &scans.Service{
		Store:           app.Store,
		StorageProvider: app.Config.ObjectStoreType,
		Repo:            scanRepo,
		Text:            textsource.New(app.Store, app.OCR),
		Health:          app.Health,
		Queue:           app.Queue,
	}
	app.Assessments = assessments.NewService(app.Patients, app.Health)

	app.PatientHandler = patients.NewHandler(app.Patients)
	app.HealthHandler = healthdata.NewHandler(app.Health)
	app.ScanHandler = scans.NewHandler(app.Scans)
	app.AssessmentHandler = assessments.NewHandler(app.Assessments)

	var presigner uploads.Presigner
	if p, ok := app.Store.(uploads.Presigner); ok {
		presigner = p
	}
	app.UploadHandler = uploads.NewHandler(presigner, app.ScanHandler, app.Config.PresignExpiry)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
