package server

import (
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/sim"
)

type sessionView struct {
	ID           string         `json:"id"`
	Model        string         `json:"model"`
	Phase        string         `json:"phase"`
	Time         float64        `json:"time"`
	Frames       int            `json:"frames"`
	Speed        int            `json:"speed"`
	Dt           float64        `json:"dt"`
	Live         int            `json:"live"`
	Generation   uint64         `json:"generation"`
	Params       dynamo.Params  `json:"params"`
	Trajectories []sim.Snapshot `json:"trajectories,omitempty"`
}

// viewOf describes sess. tail limits each trajectory's history to its last
// tail entries; negative means all, zero omits trajectories.
func viewOf(sess *session, tail int) sessionView {
	ens := sess.sess.Ensemble()
	v := sessionView{
		ID:         sess.id,
		Model:      sess.model,
		Phase:      sess.sess.Phase().String(),
		Time:       ens.Time(),
		Frames:     sess.sess.Frames(),
		Speed:      sess.sess.Speed(),
		Dt:         sess.sess.Dt(),
		Live:       ens.Live(),
		Generation: ens.Generation(),
		Params:     sess.sess.Field().Params(),
	}
	if tail == 0 {
		return v
	}
	v.Trajectories = ens.Snapshots()
	if tail > 0 {
		for i := range v.Trajectories {
			h := v.Trajectories[i].History
			if len(h) > tail {
				v.Trajectories[i].History = h[len(h)-tail:]
			}
		}
	}
	return v
}

type divergenceEvent struct {
	Index    int     `json:"index"`
	Step     int     `json:"step"`
	Time     float64 `json:"time"`
	Reseeded bool    `json:"reseeded"`
	Error    string  `json:"error"`
}

type reportView struct {
	Steps       int               `json:"steps"`
	Time        float64           `json:"time"`
	Live        int               `json:"live"`
	Divergences []divergenceEvent `json:"divergences,omitempty"`
}

func reportOf(r sim.TickReport) reportView {
	v := reportView{Steps: r.Steps, Time: r.Time, Live: r.Live}
	for _, d := range r.Divergences {
		ev := divergenceEvent{Index: d.Index, Step: d.Step, Time: d.Time, Reseeded: d.Reseeded}
		if d.Err != nil {
			ev.Error = d.Err.Error()
		}
		v.Divergences = append(v.Divergences, ev)
	}
	return v
}
