package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

var liveStatuses = []biz.MembershipStatus{biz.MembershipActive, biz.MembershipQueued}

// membershipRepository 会员记录数据访问实现
type membershipRepository struct {
	data   *Data
	logger *log.Helper
}

// NewMembershipRepository 创建会员记录数据访问实例
func NewMembershipRepository(data *Data, logger log.Logger) biz.MembershipRepository {
	return &membershipRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *membershipRepository) Create(ctx context.Context, m *biz.Membership) error {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": m.CustomerID,
		"plan_id":     m.PlanID,
		"status":      string(m.Status),
	})

	r.logger.WithContext(ctx).Infof("Creating membership for customer_id: %d, plan_id: %d, status: %s", m.CustomerID, m.PlanID, m.Status)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create membership for customer_id: %d, error_reason: %v", m.CustomerID, err)
		return err
	}

	r.logger.WithContext(ctx).Infof("Successfully created membership with id: %d for customer_id: %d", m.ID, m.CustomerID)
	return nil
}

func (r *membershipRepository) GetByID(ctx context.Context, id int64) (*biz.Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.GetByID")
	defer span.End()

	var m biz.Membership
	if err := r.data.DB(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) ListLive(ctx context.Context, customerID int64, now time.Time) ([]*biz.Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.ListLive")
	defer span.End()

	var rows []*biz.Membership
	err := r.data.DB(ctx).
		Where("customer_id = ? AND status IN ? AND end_date > ?", customerID, liveStatuses, now).
		Order("end_date DESC").
		Find(&rows).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list live memberships for customer_id: %d, error_reason: %v", customerID, err)
		return nil, err
	}
	return rows, nil
}

func (r *membershipRepository) FindCurrent(ctx context.Context, customerID int64, now time.Time) (*biz.Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.FindCurrent")
	defer span.End()

	var m biz.Membership
	err := r.data.DB(ctx).
		Where("customer_id = ? AND status IN ? AND start_date <= ? AND end_date > ?", customerID, liveStatuses, now, now).
		Order("end_date DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*biz.Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.ListByCustomer")
	defer span.End()

	var rows []*biz.Membership
	if err := r.data.DB(ctx).Where("customer_id = ?", customerID).Order("start_date DESC").Order("id DESC").Find(&rows).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list memberships for customer_id: %d, error_reason: %v", customerID, err)
		return nil, err
	}
	return rows, nil
}

func (r *membershipRepository) ExpireEnded(ctx context.Context, customerID int64, now time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.ExpireEnded")
	defer span.End()

	res := r.data.DB(ctx).
		Model(&biz.Membership{}).
		Where("customer_id = ? AND status IN ? AND end_date <= ?", customerID, liveStatuses, now).
		Update("status", biz.MembershipExpired)
	if res.Error != nil {
		r.logger.WithContext(ctx).Errorf("Failed to expire memberships for customer_id: %d, error_reason: %v", customerID, res.Error)
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.logger.WithContext(ctx).Infof("Expired %d memberships for customer_id: %d", res.RowsAffected, customerID)
	}
	return res.RowsAffected, nil
}

func (r *membershipRepository) ExpireAllEnded(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.ExpireAllEnded")
	defer span.End()

	res := r.data.DB(ctx).
		Model(&biz.Membership{}).
		Where("status IN ? AND end_date <= ?", liveStatuses, now).
		Update("status", biz.MembershipExpired)
	if res.Error != nil {
		r.logger.WithContext(ctx).Errorf("Failed to expire ended memberships, error_reason: %v", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *membershipRepository) ListDueQueued(ctx context.Context, now time.Time, after biz.QueueCursor, limit int) ([]*biz.Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.ListDueQueued")
	defer span.End()

	var rows []*biz.Membership
	query := r.data.DB(ctx).
		Where("status = ? AND start_date <= ? AND end_date > ?", biz.MembershipQueued, now, now)
	if after.ID > 0 {
		query = query.Where("start_date > ? OR (start_date = ? AND id > ?)", after.StartDate, after.StartDate, after.ID)
	}
	err := query.
		Order("start_date ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list due queued memberships, error_reason: %v", err)
		return nil, err
	}
	return rows, nil
}

func (r *membershipRepository) UpdateStatus(ctx context.Context, id int64, status biz.MembershipStatus) error {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.UpdateStatus")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"membership_id": id,
		"status":        string(status),
	})

	if err := r.data.DB(ctx).Model(&biz.Membership{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to update membership %d to %s, error_reason: %v", id, status, err)
		return err
	}
	return nil
}

func (r *membershipRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.DeleteByCustomer")
	defer span.End()

	return r.data.DB(ctx).Where("customer_id = ?", customerID).Delete(&biz.Membership{}).Error
}
