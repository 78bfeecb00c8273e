package nhl

type scheduleResponse struct {
	GameWeek []gameDay `json:"gameWeek"`
}

type gameDay struct {
	Date  string         `json:"date"`
	Games []gameResponse `json:"games"`
}

type scoreResponse struct {
	CurrentDate string         `json:"currentDate"`
	Games       []gameResponse `json:"games"`
}

type gameResponse struct {
	ID                int                `json:"id"`
	GameDate          string             `json:"gameDate"`
	StartTimeUTC      string             `json:"startTimeUTC"`
	GameState         string             `json:"gameState"`
	GameScheduleState string             `json:"gameScheduleState"`
	HomeTeam          teamResponse       `json:"homeTeam"`
	AwayTeam          teamResponse       `json:"awayTeam"`
	PeriodDescriptor  periodDescriptor   `json:"periodDescriptor"`
	Clock             clockResponse      `json:"clock"`
	GameOutcome       *gameOutcomeResult `json:"gameOutcome,omitempty"`
}

type teamResponse struct {
	ID         int           `json:"id"`
	Abbrev     string        `json:"abbrev"`
	Score      int           `json:"score"`
	Name       localizedName `json:"name"`
	CommonName localizedName `json:"commonName"`
	PlaceName  localizedName `json:"placeName"`
}

type localizedName struct {
	Default string `json:"default"`
}

type periodDescriptor struct {
	Number     int    `json:"number"`
	PeriodType string `json:"periodType"`
}

type clockResponse struct {
	TimeRemaining  string `json:"timeRemaining"`
	InIntermission bool   `json:"inIntermission"`
}

type gameOutcomeResult struct {
	LastPeriodType string `json:"lastPeriodType"`
}
