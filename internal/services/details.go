package services

import (
	"github.com/Cyvadra/stockwatch/internal/models"
	"gorm.io/datatypes"
)

func newDetails(ep Episode, t Thresholds) datatypes.JSONType[models.FastConsumptionDetails] {
	return datatypes.NewJSONType(models.FastConsumptionDetails{
		Timespan:            t.TimespanDays,
		Threshold:           t.Threshold,
		MinDailyConsumption: t.MinDailyConsumption,
		ConsumptionRate:     ep.Rate,
		DailyConsumption:    ep.Daily,
		QtyChange:           ep.QtyChange,
		Days:                ep.Days,
		StartQty:            ep.First.Quantity,
		EndQty:              ep.Last.Quantity,
		StartDate:           ep.First.RecordDate,
		EndDate:             ep.Last.RecordDate,
	})
}
