// Package fixtures loads the embedded seed data set: a small application
// hierarchy with linked attributes and organisations, plus a development
// admin account. The `catalog seed` command uses it to populate a fresh
// database, and tests treat it as the canonical expected data.
package fixtures

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/auth"
	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
	"github.com/application-catalog/application-catalog/internal/validation"
)

//go:embed seed_data.json
var seedFS embed.FS

// seedAttribute is one attribute record of the seed set. Parent references
// name the parent's slug; parents must appear earlier in the file.
type seedAttribute struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	DataType    string `json:"data_type"`
	Description string `json:"description"`
	Parent      string `json:"parent"`
}

type seedOrganisation struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Website     string `json:"website"`
	Parent      string `json:"parent"`
}

type seedApplication struct {
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Parent        string   `json:"parent"`
	Attributes    []string `json:"attributes"`
	Organisations []string `json:"organisations"`
}

type seedAdminUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// seedData is the full embedded seed set
type seedData struct {
	Attributes    []seedAttribute    `json:"attributes"`
	Organisations []seedOrganisation `json:"organisations"`
	Applications  []seedApplication  `json:"applications"`
	AdminUsers    []seedAdminUser    `json:"admin_users"`
}

// parseSeedData decodes the embedded JSON and checks that every parent and
// link reference points at a record defined earlier in the set.
func parseSeedData() (*seedData, error) {
	raw, err := seedFS.ReadFile("seed_data.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed data: %w", err)
	}

	var data seedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}

	attrSlugs := make(map[string]bool, len(data.Attributes))
	for _, a := range data.Attributes {
		if a.Parent != "" && !attrSlugs[a.Parent] {
			return nil, fmt.Errorf("attribute %q references undefined parent %q", a.Slug, a.Parent)
		}
		attrSlugs[a.Slug] = true
	}
	orgSlugs := make(map[string]bool, len(data.Organisations))
	for _, o := range data.Organisations {
		if o.Parent != "" && !orgSlugs[o.Parent] {
			return nil, fmt.Errorf("organisation %q references undefined parent %q", o.Slug, o.Parent)
		}
		orgSlugs[o.Slug] = true
	}
	appSlugs := make(map[string]bool, len(data.Applications))
	for _, app := range data.Applications {
		if app.Parent != "" && !appSlugs[app.Parent] {
			return nil, fmt.Errorf("application %q references undefined parent %q", app.Slug, app.Parent)
		}
		appSlugs[app.Slug] = true
		for _, s := range app.Attributes {
			if !attrSlugs[s] {
				return nil, fmt.Errorf("application %q links undefined attribute %q", app.Slug, s)
			}
		}
		for _, s := range app.Organisations {
			if !orgSlugs[s] {
				return nil, fmt.Errorf("application %q links undefined organisation %q", app.Slug, s)
			}
		}
	}

	return &data, nil
}

// Options controls what Load seeds
type Options struct {
	// IncludeAdminUsers seeds the development admin accounts. The shipped
	// credentials are admin/admin; never enable this outside development.
	IncludeAdminUsers bool
}

// Load writes the seed set into the database. It is idempotent: records are
// matched by slug (admin users by username) and updated in place, so
// re-running after a partial load converges on the same state. Every write
// rebuilds the hierarchy columns through the repositories.
func Load(ctx context.Context, db *sqlx.DB, opts Options) error {
	data, err := parseSeedData()
	if err != nil {
		return err
	}

	attrRepo := repositories.NewAttributeRepository(db)
	for _, seed := range data.Attributes {
		attr, err := attrRepo.GetBySlug(ctx, seed.Slug)
		if err != nil {
			return err
		}
		isNew := attr == nil
		if isNew {
			attr = &models.Attribute{Slug: seed.Slug, IsActive: true}
		}
		attr.Name = seed.Name
		attr.Value = seed.Value
		attr.DataType = seed.DataType
		if attr.DataType == "" {
			attr.DataType = validation.DefaultDataType
		}
		attr.Description = seed.Description
		attr.ParentID = nil
		if seed.Parent != "" {
			parent, err := attrRepo.GetBySlug(ctx, seed.Parent)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("seed attribute %q: parent %q not loaded", seed.Slug, seed.Parent)
			}
			attr.ParentID = &parent.ID
		}

		if isNew {
			err = attrRepo.Create(ctx, attr)
		} else {
			err = attrRepo.Update(ctx, attr)
		}
		if err != nil {
			return fmt.Errorf("failed to seed attribute %q: %w", seed.Slug, err)
		}
	}

	orgRepo := repositories.NewOrganisationRepository(db)
	for _, seed := range data.Organisations {
		org, err := orgRepo.GetBySlug(ctx, seed.Slug)
		if err != nil {
			return err
		}
		isNew := org == nil
		if isNew {
			org = &models.Organisation{Slug: seed.Slug, IsActive: true}
		}
		org.Name = seed.Name
		org.Description = seed.Description
		org.Code = seed.Code
		org.Email = seed.Email
		org.Phone = seed.Phone
		org.Address = seed.Address
		org.Website = seed.Website
		org.ParentID = nil
		if seed.Parent != "" {
			parent, err := orgRepo.GetBySlug(ctx, seed.Parent)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("seed organisation %q: parent %q not loaded", seed.Slug, seed.Parent)
			}
			org.ParentID = &parent.ID
		}

		if isNew {
			err = orgRepo.Create(ctx, org)
		} else {
			err = orgRepo.Update(ctx, org)
		}
		if err != nil {
			return fmt.Errorf("failed to seed organisation %q: %w", seed.Slug, err)
		}
	}

	appRepo := repositories.NewApplicationRepository(db)
	for _, seed := range data.Applications {
		app, err := appRepo.GetBySlug(ctx, seed.Slug)
		if err != nil {
			return err
		}
		isNew := app == nil
		if isNew {
			app = &models.Application{Slug: seed.Slug}
		}
		app.Name = seed.Name
		app.Description = seed.Description
		app.ParentID = nil
		if seed.Parent != "" {
			parent, err := appRepo.GetBySlug(ctx, seed.Parent)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("seed application %q: parent %q not loaded", seed.Slug, seed.Parent)
			}
			app.ParentID = &parent.ID
		}

		if isNew {
			err = appRepo.Create(ctx, app)
		} else {
			err = appRepo.Update(ctx, app)
		}
		if err != nil {
			return fmt.Errorf("failed to seed application %q: %w", seed.Slug, err)
		}

		if err := replaceAttributeLinks(ctx, appRepo, attrRepo, app, seed.Attributes); err != nil {
			return err
		}
		if err := replaceOrganisationLinks(ctx, appRepo, orgRepo, app, seed.Organisations); err != nil {
			return err
		}
	}

	if opts.IncludeAdminUsers {
		if err := loadAdminUsers(ctx, db, data.AdminUsers); err != nil {
			return err
		}
	}

	slog.Info("seed data loaded",
		"applications", len(data.Applications),
		"attributes", len(data.Attributes),
		"organisations", len(data.Organisations),
	)
	return nil
}

func replaceAttributeLinks(ctx context.Context, appRepo *repositories.ApplicationRepository, attrRepo *repositories.AttributeRepository, app *models.Application, slugs []string) error {
	ids := make([]uuid.UUID, 0, len(slugs))
	for _, s := range slugs {
		attr, err := attrRepo.GetBySlug(ctx, s)
		if err != nil {
			return err
		}
		if attr == nil {
			return fmt.Errorf("seed application %q: attribute %q not loaded", app.Slug, s)
		}
		ids = append(ids, attr.ID)
	}
	if err := appRepo.ReplaceAttributes(ctx, app.ID, ids); err != nil {
		return fmt.Errorf("failed to link seed attributes for %q: %w", app.Slug, err)
	}
	return nil
}

func replaceOrganisationLinks(ctx context.Context, appRepo *repositories.ApplicationRepository, orgRepo *repositories.OrganisationRepository, app *models.Application, slugs []string) error {
	ids := make([]uuid.UUID, 0, len(slugs))
	for _, s := range slugs {
		org, err := orgRepo.GetBySlug(ctx, s)
		if err != nil {
			return err
		}
		if org == nil {
			return fmt.Errorf("seed application %q: organisation %q not loaded", app.Slug, s)
		}
		ids = append(ids, org.ID)
	}
	if err := appRepo.ReplaceOrganisations(ctx, app.ID, ids); err != nil {
		return fmt.Errorf("failed to link seed organisations for %q: %w", app.Slug, err)
	}
	return nil
}

// loadAdminUsers seeds the development admin accounts, hashing the plaintext
// passwords from the fixture. Existing usernames are left untouched so a
// changed production password is never reverted by a re-seed.
func loadAdminUsers(ctx context.Context, db *sqlx.DB, seeds []seedAdminUser) error {
	userRepo := repositories.NewAdminUserRepository(db)
	for _, seed := range seeds {
		existing, err := userRepo.GetByUsername(ctx, seed.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		hash, err := auth.HashPassword(seed.Password)
		if err != nil {
			return fmt.Errorf("failed to hash seed password for %q: %w", seed.Username, err)
		}
		user := &models.AdminUser{
			Username:     seed.Username,
			PasswordHash: hash,
			Role:         seed.Role,
			IsActive:     true,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to seed admin user %q: %w", seed.Username, err)
		}
		slog.Warn("seeded development admin account; change the password before exposing the service",
			"username", seed.Username)
	}
	return nil
}
