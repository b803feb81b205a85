package executor

import (
	"net/http"

	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// Route is the remote operation for one action type.
type Route struct {
	Method string
	Path   string
}

// Routes maps action types to remote operations.
type Routes map[queue.ActionType]Route

// DefaultRoutes returns the field API endpoints.
func DefaultRoutes() Routes {
	return Routes{
		queue.ActionCheckIn:        {http.MethodPost, "/api/attendance/check-in"},
		queue.ActionCheckOut:       {http.MethodPost, "/api/attendance/check-out"},
		queue.ActionTaskUpdate:     {http.MethodPut, "/api/tasks"},
		queue.ActionReportSubmit:   {http.MethodPost, "/api/reports"},
		queue.ActionLocationUpdate: {http.MethodPost, "/api/locations"},
		queue.ActionPhotoUpload:    {http.MethodPost, "/api/photos"},
	}
}
