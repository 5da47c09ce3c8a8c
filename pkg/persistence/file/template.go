package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

// TemplateRepository stores one JSON file per template under templates/.
type TemplateRepository struct {
	root string
}

func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{root: root}
}

func (r *TemplateRepository) dir() string {
	return filepath.Join(r.root, "templates")
}

func (r *TemplateRepository) List(ctx context.Context) ([]*models.Template, error) {
	ids, err := listJSONIDs(r.dir())
	if err != nil {
		return nil, persistence.NewTemplateError("List", "", err)
	}

	templates := make([]*models.Template, 0, len(ids))

	for _, id := range ids {
		tmpl, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		templates = append(templates, tmpl)
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})

	return templates, nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.Template, error) {
	data, err := os.ReadFile(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
		}

		return nil, persistence.NewTemplateError("GetByID", id, err)
	}

	var tmpl models.Template

	err = json.Unmarshal(data, &tmpl)
	if err != nil {
		return nil, persistence.NewTemplateError("GetByID", id, err)
	}

	return &tmpl, nil
}

func (r *TemplateRepository) Save(_ context.Context, tmpl *models.Template) error {
	err := writeJSON(r.dir(), tmpl.ID, tmpl)
	if err != nil {
		return persistence.NewTemplateError("Save", tmpl.ID, err)
	}

	return nil
}

func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
		}

		return persistence.NewTemplateError("Delete", id, err)
	}

	return nil
}
