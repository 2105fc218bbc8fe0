package engine

import (
	"fmt"

	"popdash/internal/models"
)

// BuildView runs the filter and reshape steps for one selector value.
func (d *Dataset) BuildView(selected string) (*models.DashboardView, error) {
	subset := Filter(d.records, selected)
	view, err := d.header(selected, subset)
	if err != nil {
		return nil, err
	}

	// Each chart owns its own table.
	view.Trend = ReshapeToTidy(subset)
	view.Bars = ReshapeToTidy(subset)

	return view, nil
}

// PageView is BuildView without the chart tables.
func (d *Dataset) PageView(selected string) (*models.DashboardView, error) {
	return d.header(selected, Filter(d.records, selected))
}

func (d *Dataset) header(selected string, subset []models.PopulationRecord) (*models.DashboardView, error) {
	view := &models.DashboardView{
		Selected: selected,
		Options:  d.Options(),
	}
	if selected != NoSelection {
		info, err := DescribeProvince(subset)
		if err != nil {
			return nil, fmt.Errorf("province %q: %w", selected, err)
		}
		view.Info = info.String()
	}
	return view, nil
}

// Describe looks up the descriptive fields of one province.
func (d *Dataset) Describe(province string) (models.ProvinceInfo, error) {
	if province == NoSelection {
		return models.ProvinceInfo{}, fmt.Errorf("no province selected: %w", ErrOutOfRange)
	}
	info, err := DescribeProvince(Filter(d.records, province))
	if err != nil {
		return info, fmt.Errorf("province %q: %w", province, err)
	}
	return info, nil
}

// Tidy returns the long-form table for a selector value.
func (d *Dataset) Tidy(selected string) ([]models.TidyRecord, error) {
	if selected != NoSelection && !d.Has(selected) {
		return nil, fmt.Errorf("province %q: %w", selected, ErrOutOfRange)
	}
	return ReshapeToTidy(Filter(d.records, selected)), nil
}
