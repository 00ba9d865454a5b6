package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/lineup"
	"github.com/iliyamo/festplanner/internal/middleware"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
)

const dateLayout = "2006-01-02"

// FestivalHandler serves festivals, their stages and shows, and the
// grouped lineup views.
type FestivalHandler struct {
	Festivals *repository.FestivalRepo
	Stages    *repository.StageRepo
	Shows     *repository.ShowRepo
	Bands     *repository.BandRepo
}

func NewFestivalHandler(f *repository.FestivalRepo, s *repository.StageRepo, sh *repository.ShowRepo, b *repository.BandRepo) *FestivalHandler {
	if f == nil || s == nil || sh == nil || b == nil {
		panic("nil repository passed to NewFestivalHandler")
	}
	return &FestivalHandler{Festivals: f, Stages: s, Shows: sh, Bands: b}
}

// visible loads a festival the caller may see.  Hidden festivals are
// reported as missing.
func (h *FestivalHandler) visible(ctx context.Context, c echo.Context, id string) (*model.Festival, error) {
	f, err := h.Festivals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.IsPublic || isAdmin(c) {
		return f, nil
	}
	if f.CreatedBy != nil && *f.CreatedBy == middleware.UserID(c) {
		return f, nil
	}
	return nil, repository.ErrNotFound
}

// ListPublic lists public festivals for anonymous visitors.
//
// when: "any" (default), "upcoming" (start_date >= today), "active"
// (end_date >= today).  search matches the name.
func (h *FestivalHandler) ListPublic(c echo.Context) error {
	when := strings.ToLower(strings.TrimSpace(c.QueryParam("when")))
	switch when {
	case "":
		when = repository.WhenAny
	case repository.WhenAny, repository.WhenUpcoming, repository.WhenActive:
	default:
		return badRequest(c, "when must be any, upcoming or active")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	list, total, err := h.Festivals.SearchPublic(ctx, repository.FestivalQuery{
		Search:   c.QueryParam("search"),
		When:     when,
		Page:     page,
		PageSize: ps,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     list,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

// PublicLineup shows the grouped lineup of a public festival.
func (h *FestivalHandler) PublicLineup(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.Festivals.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if !f.IsPublic {
		return fail(c, repository.ErrNotFound)
	}
	return h.lineup(c, ctx, f)
}

// List returns the festivals visible to the caller.
func (h *FestivalHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Festivals.ListVisible(ctx, middleware.UserID(c), isAdmin(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

// Get returns one visible festival.
func (h *FestivalHandler) Get(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.visible(ctx, c, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Lineup returns the grouped lineup of a visible festival.
func (h *FestivalHandler) Lineup(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.visible(ctx, c, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return h.lineup(c, ctx, f)
}

func (h *FestivalHandler) lineup(c echo.Context, ctx context.Context, f *model.Festival) error {
	shows, err := h.Shows.ListByFestival(ctx, f.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"festival": f,
		"schedule": lineup.GroupByDay(shows, f.Location()),
	})
}

type festivalReq struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Timezone    *string `json:"timezone" validate:"omitempty,timezone"`
	ImageURL    *string `json:"image_url"`
	WebsiteURL  *string `json:"website_url"`
	IsPublic    *bool   `json:"is_public"`
}

// apply copies the provided fields onto f.
func (r festivalReq) apply(f *model.Festival) {
	if r.Name != nil {
		f.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		f.Description = optString(r.Description)
	}
	if r.StartDate != nil {
		f.StartDate, _ = time.Parse(dateLayout, *r.StartDate)
	}
	if r.EndDate != nil {
		f.EndDate, _ = time.Parse(dateLayout, *r.EndDate)
	}
	if r.Timezone != nil {
		f.Timezone = *r.Timezone
	}
	if r.ImageURL != nil {
		f.ImageURL = optString(r.ImageURL)
	}
	if r.WebsiteURL != nil {
		f.WebsiteURL = optString(r.WebsiteURL)
	}
	if r.IsPublic != nil {
		f.IsPublic = *r.IsPublic
	}
}

// Create adds a festival owned by the caller.  New festivals are private
// unless is_public is set.
func (h *FestivalHandler) Create(c echo.Context) error {
	var req festivalReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" || req.StartDate == nil || req.EndDate == nil {
		return badRequest(c, "name, start_date and end_date are required")
	}
	uid := middleware.UserID(c)
	f := &model.Festival{Timezone: "UTC", CreatedBy: &uid}
	req.apply(f)
	if f.EndDate.Before(f.StartDate) {
		return badRequest(c, "end_date must not be before start_date")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Festivals.Create(ctx, f); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// Update changes the provided fields of a festival.
func (h *FestivalHandler) Update(c echo.Context) error {
	var req festivalReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.Festivals.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	req.apply(f)
	if f.Name == "" {
		return badRequest(c, "name must not be empty")
	}
	if f.EndDate.Before(f.StartDate) {
		return badRequest(c, "end_date must not be before start_date")
	}
	if err := h.Festivals.Update(ctx, f); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Delete removes a festival with its stages and shows.
func (h *FestivalHandler) Delete(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Festivals.Delete(ctx, c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- stages -----

type stageReq struct {
	Name string `json:"name" validate:"required,max=120"`
}

// ListStages lists a visible festival's stages.
func (h *FestivalHandler) ListStages(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.visible(ctx, c, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	list, err := h.Stages.ListByFestival(ctx, f.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

// CreateStage adds a stage to a festival.  Names are unique per festival.
func (h *FestivalHandler) CreateStage(c echo.Context) error {
	var req stageReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.Festivals.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	s := &model.Stage{FestivalID: f.ID, Name: strings.TrimSpace(req.Name)}
	if err := h.Stages.Create(ctx, s); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// DeleteStage removes a stage.  Stages with shows need ?force=true, which
// leaves those shows without a stage.
func (h *FestivalHandler) DeleteStage(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	force := c.QueryParam("force") == "true"
	err := h.Stages.Delete(ctx, c.Param("id"), force)
	if errors.Is(err, repository.ErrConflict) {
		return errorJSON(c, http.StatusConflict, "stage_in_use", "stage has shows; retry with force=true")
	}
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- shows -----

type showReq struct {
	BandID      *string    `json:"band_id"`
	StageID     *string    `json:"stage_id"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	IsLateNight *bool      `json:"is_late_night"`
	Unschedule  bool       `json:"unschedule"`
}

// ListShows returns a visible festival's shows in schedule order.
func (h *FestivalHandler) ListShows(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.visible(ctx, c, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	list, err := h.Shows.ListByFestival(ctx, f.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

// CreateShow schedules a band at a festival.
func (h *FestivalHandler) CreateShow(c echo.Context) error {
	var req showReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.BandID == nil || *req.BandID == "" {
		return badRequest(c, "band_id is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	f, err := h.Festivals.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	s := &model.Show{FestivalID: f.ID}
	msg, err := h.applyShow(ctx, f, s, req)
	if err != nil {
		return fail(c, err)
	}
	if msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Shows.Create(ctx, s); err != nil {
		return fail(c, err)
	}
	created, err := h.Shows.GetByID(ctx, s.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateShow changes the provided fields of a show.  An empty stage_id
// detaches the show from its stage; unschedule clears both times.
func (h *FestivalHandler) UpdateShow(c echo.Context) error {
	var req showReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	s, err := h.Shows.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	f, err := h.Festivals.GetByID(ctx, s.FestivalID)
	if err != nil {
		return fail(c, err)
	}
	msg, err := h.applyShow(ctx, f, s, req)
	if err != nil {
		return fail(c, err)
	}
	if msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Shows.Update(ctx, s); err != nil {
		return fail(c, err)
	}
	updated, err := h.Shows.GetByID(ctx, s.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// applyShow validates req against f and copies it onto s.  A non-empty
// message is a client error; err is a lookup failure.  The schedule flags
// are derived again only when the request moves the start time, so an
// edit of the stage or band keeps what an import or an earlier edit set.
func (h *FestivalHandler) applyShow(ctx context.Context, f *model.Festival, s *model.Show, req showReq) (string, error) {
	if req.BandID != nil {
		if _, err := h.Bands.GetByID(ctx, *req.BandID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "unknown band_id", nil
			}
			return "", err
		}
		s.BandID = *req.BandID
	}
	if req.StageID != nil {
		if *req.StageID == "" {
			s.StageID = nil
		} else {
			st, err := h.Stages.GetByID(ctx, *req.StageID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return "", err
			}
			if err != nil || st.FestivalID != f.ID {
				return "stage_id does not belong to this festival", nil
			}
			id := st.ID
			s.StageID = &id
		}
	}

	fresh := s.ID == ""
	moved := fresh || req.Unschedule || req.StartTime != nil
	switch {
	case req.Unschedule:
		s.StartTime, s.EndTime = nil, nil
	case req.StartTime != nil:
		start := req.StartTime.UTC().Truncate(time.Second)
		s.StartTime = &start
		s.EndTime = nil
	}
	if req.EndTime != nil && !req.Unschedule {
		end := req.EndTime.UTC().Truncate(time.Second)
		s.EndTime = &end
	}
	if s.EndTime != nil && s.StartTime == nil {
		return "end_time requires start_time", nil
	}
	if s.EndTime != nil && s.EndTime.Before(*s.StartTime) {
		return "end_time must not be before start_time", nil
	}

	switch {
	case req.IsLateNight != nil:
		s.IsLateNight = *req.IsLateNight
	case !moved:
	case s.StartTime != nil:
		s.IsLateNight = lineup.IsLateNight(s.StartTime.In(f.Location()))
	default:
		s.IsLateNight = false
	}
	if moved {
		s.DateTBD = s.StartTime == nil
		s.TimeTBD = s.StartTime == nil
	}
	return "", nil
}

// DeleteShow removes a show and its ratings.
func (h *FestivalHandler) DeleteShow(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Shows.Delete(ctx, c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
