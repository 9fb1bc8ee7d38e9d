package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fpang/retrosnap/internal/filter"
	"github.com/fpang/retrosnap/internal/polaroid"
	"github.com/fpang/retrosnap/internal/session"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// stateView is the JSON form of session.State.
type stateView struct {
	Status     session.Status `json:"status"`
	Filter     filter.ID      `json:"filter"`
	Processing bool           `json:"processing"`
	Flash      bool           `json:"flash"`
	Message    string         `json:"message"`
	Error      string         `json:"error,omitempty"`
	Result     *resultView    `json:"result,omitempty"`
}

type resultView struct {
	ID       string               `json:"id"`
	Seq      uint64               `json:"seq"`
	Caption  string               `json:"caption"`
	Status   session.ResultStatus `json:"status"`
	Filter   filter.ID            `json:"filter"`
	TakenAt  time.Time            `json:"takenAt"`
	Filename string               `json:"filename"`
	DataURL  string               `json:"dataUrl"`
}

func newStateView(st session.State) stateView {
	v := stateView{
		Status:     st.Status,
		Filter:     st.Filter,
		Processing: st.Processing,
		Flash:      st.Flash,
		Message:    st.Message,
	}
	if st.LastError != nil {
		v.Error = st.LastError.Error()
	}
	if r := st.Result; r != nil {
		v.Result = &resultView{
			ID:       r.ID,
			Seq:      r.Seq,
			Caption:  r.Caption,
			Status:   r.Status,
			Filter:   r.Filter,
			TakenAt:  r.TakenAt,
			Filename: r.Filename,
			DataURL:  polaroid.DataURL(r.Image),
		}
	}
	return v
}

type filterView struct {
	ID           filter.ID `json:"id"`
	DisplayClass string    `json:"displayClass"`
	CSS          string    `json:"css"`
}
