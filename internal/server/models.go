package server

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID string `json:"id"`
}

// AskRequest is the question payload. K and Threshold override the
// intent-derived retrieval strategy when positive; Hybrid overrides the
// configured default when present.
type AskRequest struct {
	Query     string  `json:"query"`
	K         int     `json:"k,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Hybrid    *bool   `json:"hybrid,omitempty"`
}

// StatsResponse is the catalog aggregate view.
type StatsResponse struct {
	TotalRecords    int      `json:"total_records"`
	DistinctSources int      `json:"distinct_sources"`
	DistinctThemes  int      `json:"distinct_themes"`
	AvgPieces       *float64 `json:"avg_pieces,omitempty"`
	MinYear         *int     `json:"min_year,omitempty"`
	MaxYear         *int     `json:"max_year,omitempty"`
	Cached          bool     `json:"cached"`
}

// RecordResponse is one catalog record as served by the API.
type RecordResponse struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Name         string   `json:"name"`
	SetNumber    *string  `json:"set_number,omitempty"`
	Year         *int     `json:"year,omitempty"`
	Theme        *string  `json:"theme,omitempty"`
	PieceCount   *int     `json:"piece_count,omitempty"`
	MinifigCount *int     `json:"minifig_count,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	QualityScore int      `json:"quality_score"`
}

// IngestRunResponse is one persisted ingestion run.
type IngestRunResponse struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	StartedAt      string  `json:"started_at"`
	FinishedAt     *string `json:"finished_at,omitempty"`
	SourcesOK      int     `json:"sources_ok"`
	SourcesSkipped int     `json:"sources_skipped"`
	SourcesFailed  int     `json:"sources_failed"`
	Fetched        int     `json:"fetched"`
	Stored         int     `json:"stored"`
	Skipped        int     `json:"skipped"`
	IDCollisions   int     `json:"id_collisions"`
	Error          string  `json:"error,omitempty"`
}

// IndexStatusResponse describes the currently published index.
type IndexStatusResponse struct {
	Ready      bool   `json:"ready"`
	Version    string `json:"version,omitempty"`
	BuiltAt    string `json:"built_at,omitempty"`
	Records    int    `json:"records"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}
