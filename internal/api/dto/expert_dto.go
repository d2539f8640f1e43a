package dto

// ExpertResponse is the directory view of one expert.
type ExpertResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ExpertiseTags []string       `json:"expertise_tags"`
	SkillRatings  map[string]int `json:"skill_ratings,omitempty"`
	Available     bool           `json:"available"`
	CurrentLoad   int            `json:"current_load"`
	MaxConcurrent int            `json:"max_concurrent"`
}

// UpsertExpertRequest creates or replaces an expert profile.
type UpsertExpertRequest struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ExpertiseTags []string       `json:"expertise_tags"`
	SkillRatings  map[string]int `json:"skill_ratings"`
	Available     *bool          `json:"available"`
	MaxConcurrent int            `json:"max_concurrent"`
}

// SetAvailabilityRequest toggles an expert's availability.
type SetAvailabilityRequest struct {
	Available bool `json:"available"`
}

// UserPriorityResponse reports a requester's support tier.
type UserPriorityResponse struct {
	UserID string   `json:"user_id"`
	Level  string   `json:"level"`
	Tags   []string `json:"tags,omitempty"`
}

// SetUserPriorityRequest assigns a requester's support tier.
type SetUserPriorityRequest struct {
	Level string   `json:"level"`
	Tags  []string `json:"tags"`
}
