package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/example/face-auth/internal/face"
	"github.com/example/face-auth/internal/similarity"
)

// Config holds every tunable of the service. Load fills it from the environment on
// top of Default.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string // empty disables the gRPC health server
	LogLevel        string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	CORSOrigins     []string

	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseDSN    string
	SQLiteFile     string

	UserStore       string // "sql" or "mongo"
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisAddr string // empty disables the attempt cache

	JWTSecret   string // empty disables bearer auth and token issuance
	JWTAudience string
	TokenTTL    time.Duration

	Detector          string
	CascadePath       string // empty selects the built-in pigo cascade
	ScaleFactor       float64
	MinNeighbors      int
	MinFaceSize       int
	MaxFaceSize       int
	ContrastThreshold int
	CanonicalWidth    int
	CanonicalHeight   int
	MatchThreshold    float64
	MaxImagePixels    int
	Workers           int

	AllowedRoles []string
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	params := face.DefaultDetectorParams()
	return Config{
		HTTPAddr:          ":5001",
		GRPCAddr:          ":9090",
		LogLevel:          "info",
		ShutdownTimeout:   15 * time.Second,
		MaxUploadBytes:    10 << 20,
		CORSOrigins:       []string{"*"},
		DatabaseDriver:    "sqlite",
		SQLiteFile:        "faceauth.db",
		UserStore:         "sql",
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "coursesell",
		MongoCollection:   "users",
		TokenTTL:          30 * 24 * time.Hour,
		Detector:          face.DetectorPigo,
		ScaleFactor:       params.ScaleFactor,
		MinNeighbors:      params.MinNeighbors,
		MinFaceSize:       params.MinSize,
		ContrastThreshold: 32,
		CanonicalWidth:    face.DefaultCanonicalWidth,
		CanonicalHeight:   face.DefaultCanonicalHeight,
		MatchThreshold:    similarity.DefaultThreshold,
		MaxImagePixels:    40_000_000,
		Workers:           runtime.NumCPU(),
		AllowedRoles:      []string{"user"},
	}
}

// Load overlays environment variables on Default. Malformed values are reported
// together rather than one at a time.
func Load() (Config, error) {
	cfg := Default()
	r := &reader{}

	r.str("HTTP_ADDR", &cfg.HTTPAddr)
	r.str("GRPC_ADDR", &cfg.GRPCAddr)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	r.integer64("MAX_UPLOAD_BYTES", &cfg.MaxUploadBytes)
	r.list("CORS_ORIGINS", &cfg.CORSOrigins)

	r.str("DATABASE_DRIVER", &cfg.DatabaseDriver)
	r.str("DATABASE_DSN", &cfg.DatabaseDSN)
	r.str("SQLITE_FILE", &cfg.SQLiteFile)

	r.str("USER_STORE", &cfg.UserStore)
	r.str("MONGODB_URI", &cfg.MongoURI)
	r.str("MONGODB_DATABASE", &cfg.MongoDatabase)
	r.str("MONGODB_COLLECTION", &cfg.MongoCollection)

	r.str("REDIS_ADDR", &cfg.RedisAddr)

	r.str("JWT_SECRET", &cfg.JWTSecret)
	r.str("JWT_AUDIENCE", &cfg.JWTAudience)
	r.duration("TOKEN_TTL", &cfg.TokenTTL)

	r.str("FACE_DETECTOR", &cfg.Detector)
	r.str("FACE_CASCADE_PATH", &cfg.CascadePath)
	r.float("FACE_SCALE_FACTOR", &cfg.ScaleFactor)
	r.integer("FACE_MIN_NEIGHBORS", &cfg.MinNeighbors)
	r.integer("FACE_MIN_SIZE", &cfg.MinFaceSize)
	r.integer("FACE_MAX_SIZE", &cfg.MaxFaceSize)
	r.integer("FACE_CONTRAST_THRESHOLD", &cfg.ContrastThreshold)
	r.integer("FACE_CANONICAL_WIDTH", &cfg.CanonicalWidth)
	r.integer("FACE_CANONICAL_HEIGHT", &cfg.CanonicalHeight)
	r.float("FACE_MATCH_THRESHOLD", &cfg.MatchThreshold)
	r.integer("FACE_MAX_IMAGE_PIXELS", &cfg.MaxImagePixels)
	r.integer("FACE_WORKERS", &cfg.Workers)
	r.list("FACE_AUTH_ROLES", &cfg.AllowedRoles)

	if err := errors.Join(r.errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("FACE_SCALE_FACTOR must be > 1, got %v", c.ScaleFactor))
	}
	if c.CanonicalWidth <= 0 || c.CanonicalHeight <= 0 {
		errs = append(errs, fmt.Errorf("canonical resolution must be positive, got %dx%d", c.CanonicalWidth, c.CanonicalHeight))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("FACE_WORKERS must be positive, got %d", c.Workers))
	}
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.UserStore != "sql" && c.UserStore != "mongo" {
		errs = append(errs, fmt.Errorf("unknown USER_STORE %q", c.UserStore))
	}
	if len(c.AllowedRoles) == 0 {
		errs = append(errs, errors.New("FACE_AUTH_ROLES must name at least one role"))
	}
	return errors.Join(errs...)
}

// DetectorParams projects the detector tunables.
func (c Config) DetectorParams() face.DetectorParams {
	return face.DetectorParams{
		ScaleFactor:  c.ScaleFactor,
		MinNeighbors: c.MinNeighbors,
		MinSize:      c.MinFaceSize,
		MaxSize:      c.MaxFaceSize,
	}
}

type reader struct {
	errs []error
}

func (r *reader) str(name string, value *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*value = v
	}
}

func (r *reader) list(name string, value *[]string) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*value = out
}

func (r *reader) integer(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*value = n
}

func (r *reader) integer64(name string, value *int64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*value = n
}

func (r *reader) float(name string, value *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*value = f
}

func (r *reader) duration(name string, value *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*value = d
}
