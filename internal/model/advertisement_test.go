package model

import (
	"testing"
	"time"
)

func TestAdvertisement_EligibleAt(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		ad   Advertisement
		want bool
	}{
		{"期間未設定で有効", Advertisement{IsActive: true}, true},
		{"無効フラグ", Advertisement{IsActive: false}, false},
		{"開始日時が未来", Advertisement{IsActive: true, StartDate: &future}, false},
		{"開始日時が現在", Advertisement{IsActive: true, StartDate: &now}, true},
		{"終了日時が過去", Advertisement{IsActive: true, EndDate: &past}, false},
		{"終了日時が現在", Advertisement{IsActive: true, EndDate: &now}, false},
		{"期間内", Advertisement{IsActive: true, StartDate: &past, EndDate: &future}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ad.EligibleAt(now); got != tt.want {
				t.Errorf("EligibleAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
