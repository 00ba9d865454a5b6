package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/importer"
	"github.com/iliyamo/festplanner/internal/lineup"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
)

// maxImportBytes bounds a pasted import document.
const maxImportBytes = 2 << 20

// Importer is the subset of importer.Importer used by the HTTP layer.
type Importer interface {
	PreviewBands(ctx context.Context, entries []lineup.BandEntry) ([]lineup.PlannedBand, error)
	ImportBands(ctx context.Context, entries []lineup.BandEntry, rehost bool) (importer.Report, error)
	PreviewLineup(ctx context.Context, f *model.Festival, entries []lineup.Entry) (*lineup.LineupPlan, error)
	ImportLineup(ctx context.Context, f *model.Festival, entries []lineup.Entry) (importer.Report, error)
}

// ImportHandler accepts band and lineup JSON documents.  The request body
// is the document itself, an array of entries.
type ImportHandler struct {
	Festivals *repository.FestivalRepo
	Importer  Importer
}

func NewImportHandler(f *repository.FestivalRepo, im Importer) *ImportHandler {
	return &ImportHandler{Festivals: f, Importer: im}
}

func readDocument(c echo.Context) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImportBytes {
		return nil, errors.New("document too large")
	}
	return data, nil
}

func (h *ImportHandler) bandEntries(c echo.Context) ([]lineup.BandEntry, error) {
	data, err := readDocument(c)
	if err != nil {
		return nil, err
	}
	return lineup.ParseBands(data)
}

func (h *ImportHandler) lineupEntries(c echo.Context) ([]lineup.Entry, error) {
	data, err := readDocument(c)
	if err != nil {
		return nil, err
	}
	return lineup.ParseLineup(data)
}

// PreviewBands reports, per entry, whether it would create or update.
func (h *ImportHandler) PreviewBands(c echo.Context) error {
	entries, err := h.bandEntries(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	plan, err := h.Importer.PreviewBands(ctx, entries)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(plan))
}

// ImportBands applies a band document.  Images are re-hosted unless
// ?rehost=false.
func (h *ImportHandler) ImportBands(c echo.Context) error {
	entries, err := h.bandEntries(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	rehost := c.QueryParam("rehost") != "false"
	rep, err := h.Importer.ImportBands(c.Request().Context(), entries, rehost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "import_failed",
			"message": err.Error(),
			"report":  rep,
		})
	}
	return c.JSON(http.StatusOK, rep)
}

// PreviewLineup matches a lineup document against the festival.
func (h *ImportHandler) PreviewLineup(c echo.Context) error {
	entries, err := h.lineupEntries(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.Festivals.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	plan, err := h.Importer.PreviewLineup(ctx, f, entries)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// ImportLineup applies a lineup document.  A document with unresolvable
// entries is rejected with its preview so the caller can see which rows
// failed.
func (h *ImportHandler) ImportLineup(c echo.Context) error {
	entries, err := h.lineupEntries(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	f, err := h.Festivals.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	rep, err := h.Importer.ImportLineup(ctx, f, entries)
	if errors.Is(err, importer.ErrInvalidEntries) {
		plan, perr := h.Importer.PreviewLineup(ctx, f, entries)
		if perr != nil {
			return fail(c, perr)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "invalid_entries",
			"message": err.Error(),
			"preview": plan,
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "import_failed",
			"message": err.Error(),
			"report":  rep,
		})
	}
	return c.JSON(http.StatusOK, rep)
}
