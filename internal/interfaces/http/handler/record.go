package handler

import (
	"net/http"

	"github.com/erp/invoicing/internal/application/browser"
	"github.com/gin-gonic/gin"
)

// RecordHandler serves the read-only record browser
type RecordHandler struct {
	browser RecordBrowser
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(b RecordBrowser) *RecordHandler {
	return &RecordHandler{browser: b}
}

// ListTables godoc
// @ID           listRecordTables
// @Summary      List browsable tables
// @Description  Returns the schema of every table the record browser can show
// @Tags         records
// @Produce      json
// @Success      200 {object} APIResponse[[]browser.TableSchema]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /records [get]
func (h *RecordHandler) ListTables(c *gin.Context) {
	respond(c, http.StatusOK, h.browser.Tables())
}

// Browse godoc
// @ID           browseRecords
// @Summary      Browse a table
// @Description  Fetches every record of a table, formats it for display and keeps the rows matching the search
// @Tags         records
// @Produce      json
// @Param        table  path   string true  "Table name" Enums(invoices, clients, profiles, invoice_line_items)
// @Param        search query  string false "Case-insensitive substring filter"
// @Param        scope  query  string false "all or mine" Enums(all, mine)
// @Success      200 {object} APIResponse[browser.RenderedTable]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /records/{table} [get]
func (h *RecordHandler) Browse(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var q browser.BrowseQuery
	if !bindQuery(c, &q) {
		return
	}

	table, err := h.browser.Browse(c.Request.Context(), actor, c.Param("table"), q)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, table)
}
