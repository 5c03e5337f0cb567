package server

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Version is the version string reported by the server. Overwritten at
// link time for release builds.
var Version = "devel"

func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "File Storage (%s)\n", Version)
}
