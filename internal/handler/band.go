package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festplanner/internal/artist"
	"github.com/iliyamo/festplanner/internal/model"
	"github.com/iliyamo/festplanner/internal/repository"
)

// ArtistSyncer refreshes band metadata from the artist catalogue.
type ArtistSyncer interface {
	SyncBand(ctx context.Context, id string) (*model.Band, *artist.Artist, error)
	SyncMissing(ctx context.Context) (artist.SyncReport, error)
}

// BandHandler serves the global band catalogue.
type BandHandler struct {
	Bands *repository.BandRepo
	Sync  ArtistSyncer // nil when Spotify credentials are not configured
}

func NewBandHandler(b *repository.BandRepo, s ArtistSyncer) *BandHandler {
	return &BandHandler{Bands: b, Sync: s}
}

type bandReq struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=200"`
	Bio           *string `json:"bio"`
	OriginCountry *string `json:"origin_country" validate:"omitempty,max=80"`
	ImageURL      *string `json:"image_url"`
	WebsiteURL    *string `json:"website_url"`
	SpotifyURL    *string `json:"spotify_url"`
	AppleMusicURL *string `json:"apple_music_url"`
}

// apply copies the provided fields onto b.  Spotify links are stored in
// their canonical open.spotify.com form.
func (r bandReq) apply(b *model.Band) error {
	if r.Name != nil {
		b.Name = strings.TrimSpace(*r.Name)
	}
	if r.Bio != nil {
		b.Bio = optString(r.Bio)
	}
	if r.OriginCountry != nil {
		b.OriginCountry = optString(r.OriginCountry)
	}
	if r.ImageURL != nil {
		b.ImageURL = optString(r.ImageURL)
	}
	if r.WebsiteURL != nil {
		b.WebsiteURL = optString(r.WebsiteURL)
	}
	if r.AppleMusicURL != nil {
		b.AppleMusicURL = optString(r.AppleMusicURL)
	}
	if r.SpotifyURL != nil {
		b.SpotifyURL = nil
		if s := optString(r.SpotifyURL); s != nil {
			id, err := artist.ParseSpotifyArtistID(*s)
			if err != nil {
				return err
			}
			u := artist.ArtistURL(id)
			b.SpotifyURL = &u
		}
	}
	return nil
}

// List returns bands ordered by name, optionally filtered by ?search=.
func (h *BandHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Bands.List(ctx, strings.TrimSpace(c.QueryParam("search")))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, items(list))
}

func (h *BandHandler) Get(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Bands.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BandHandler) Create(c echo.Context) error {
	var req bandReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return badRequest(c, "name is required")
	}
	b := &model.Band{}
	if err := req.apply(b); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Bands.Create(ctx, b); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BandHandler) Update(c echo.Context) error {
	var req bandReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Bands.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	if err := req.apply(b); err != nil {
		return badRequest(c, err.Error())
	}
	if b.Name == "" {
		return badRequest(c, "name must not be empty")
	}
	if err := h.Bands.Update(ctx, b); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete removes a band together with its shows.
func (h *BandHandler) Delete(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Bands.Delete(ctx, c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BandHandler) syncDisabled(c echo.Context) error {
	return errorJSON(c, http.StatusServiceUnavailable, "not_configured", "artist search is not configured")
}

// SyncArtist looks the band up in the artist catalogue and stores the
// link and image it finds.
func (h *BandHandler) SyncArtist(c echo.Context) error {
	if h.Sync == nil {
		return h.syncDisabled(c)
	}
	b, a, err := h.Sync.SyncBand(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, artist.ErrArtistNotFound):
		return errorJSON(c, http.StatusNotFound, "artist_not_found", "no matching artist found")
	case err != nil:
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"band": b, "artist": a})
}

// SyncMissing backfills every band missing an image or Spotify link.  The
// run is paced and may take a while for large catalogues.
func (h *BandHandler) SyncMissing(c echo.Context) error {
	if h.Sync == nil {
		return h.syncDisabled(c)
	}
	rep, err := h.Sync.SyncMissing(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}
