package models

// Dashboard это стартовый экран игрока, загружаемый одним запросом.
type Dashboard struct {
	Account         UserAccount        `json:"account"`
	Joined          []JoinedTournament `json:"joined"`
	Won             []WonTournament    `json:"won"`
	PendingRequests []CoinRequest      `json:"pending_requests"`
	TotalPrizeWon   int64              `json:"total_prize_won"`
}
