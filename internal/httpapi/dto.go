package httpapi

import "github.com/cory-johannsen/azdice/internal/dice"

type rangeResponse struct {
	Expression string  `json:"expression"`
	Min        int64   `json:"min"`
	Max        int64   `json:"max"`
	Reachable  *bounds `json:"reachable,omitempty"`
	Exploding  bool    `json:"exploding"`
}

type bounds struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type groupResponse struct {
	Notation string  `json:"notation"`
	Values   []int64 `json:"values"`
	Subtotal int64   `json:"subtotal"`
}

type rollResponse struct {
	Groups []groupResponse `json:"groups"`
	Bonus  int64           `json:"bonus"`
	Total  int64           `json:"total"`
}

type rollsResponse struct {
	Expression string         `json:"expression"`
	Rolls      []rollResponse `json:"rolls"`
	Recorded   int64          `json:"recorded,omitempty"`
}

type distributionResponse struct {
	Expression string     `json:"expression"`
	Rolls      int        `json:"rolls"`
	Min        int64      `json:"min"`
	Max        int64      `json:"max"`
	Mean       float64    `json:"mean"`
	Bins       []dice.Bin `json:"bins"`
}

type presetResponse struct {
	Name        string `json:"name"`
	Expression  string `json:"expression"`
	Description string `json:"description,omitempty"`
	Min         int64  `json:"min"`
	Max         int64  `json:"max"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func toRollResponse(r dice.RollResult) rollResponse {
	out := rollResponse{
		Groups: make([]groupResponse, len(r.Dice)),
		Bonus:  r.Bonus.Subtotal,
		Total:  r.Total,
	}
	for i, d := range r.Dice {
		out.Groups[i] = groupResponse{Notation: d.Group.String(), Values: d.Values, Subtotal: d.Subtotal}
	}
	return out
}

func toRangeResponse(b *dice.Bag) rangeResponse {
	rng := b.Range()
	out := rangeResponse{Expression: b.String(), Min: rng.Min, Max: rng.Max, Exploding: b.Exploding()}
	if reach := b.Reachable(); reach != rng {
		out.Reachable = &bounds{Min: reach.Min, Max: reach.Max}
	}
	return out
}
