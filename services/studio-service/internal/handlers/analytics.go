package handlers

import (
	"net/http"
	"time"

	"github.com/lashstudio/studio-backend/libs/analytics"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
)

const dashboardWindow = 30 * 24 * time.Hour

func (a *API) dashboard(w http.ResponseWriter, r *http.Request, _ model.User) {
	to := a.now().UTC()
	from := to.Add(-dashboardWindow)
	appts, err := a.Appointments.List(r.Context(), store.ListFilter{From: &from, To: &to})
	if err != nil {
		a.storeError(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, map[string]any{"analytics": analytics.Summarize(appts)})
}
