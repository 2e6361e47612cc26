package csv

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yurifrl/thyme/pkg/models"
)

func TestCreate(t *testing.T) {
	views := []models.TransactionView{
		{ID: 1, Date: time.Date(2013, 10, 31, 0, 0, 0, 0, time.UTC), Description: "TRINET DES:PAYROLL, INDN:SMITH", Amount: decimal.RequireFromString("4515.26"), CategoryName: "paycheck", AccountNickname: "bofa"},
		{ID: 2, Date: time.Date(2013, 11, 1, 0, 0, 0, 0, time.UTC), Description: "Starbucks", Amount: decimal.RequireFromString("-4.5"), CategoryName: "coffee", AccountNickname: "bofa"},
	}

	out, err := Create(views)
	require.NoError(t, err)
	assert.Equal(t, "Id,Date,Account,Description,Category,Amount\n"+
		"1,2013-10-31,bofa,\"TRINET DES:PAYROLL, INDN:SMITH\",paycheck,4515.26\n"+
		"2,2013-11-01,bofa,Starbucks,coffee,-4.50\n", string(out))
}

func TestCreateEmpty(t *testing.T) {
	out, err := Create(nil)
	require.NoError(t, err)
	assert.Equal(t, "Id,Date,Account,Description,Category,Amount\n", string(out))
}
