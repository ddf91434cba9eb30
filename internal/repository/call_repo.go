package repository

import (
	"github.com/ydjemai93/test-drive/internal/model"
	"gorm.io/gorm"
)

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

func (r *CallRepository) Create(call *model.CallRecord) error {
	return r.db.Create(call).Error
}

func (r *CallRepository) Save(call *model.CallRecord) error {
	return r.db.Save(call).Error
}

func (r *CallRepository) UpdateStatus(jobID, status string) error {
	return r.db.Model(&model.CallRecord{}).Where("job_id = ?", jobID).Update("status", status).Error
}

func (r *CallRepository) FindByJobID(jobID string) (*model.CallRecord, error) {
	var call model.CallRecord
	err := r.db.Where("job_id = ?", jobID).First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *CallRepository) List(status string, limit, page int) ([]model.CallRecord, int64, error) {
	query := r.db.Model(&model.CallRecord{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var calls []model.CallRecord
	err := query.Order("created_at desc").Limit(limit).Offset((page - 1) * limit).Find(&calls).Error
	return calls, total, err
}
