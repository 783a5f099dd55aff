package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunjankadam/Vendofy-sub001/rollup"
)

// parseDateFilter собирает DateFilter из query-параметров
func parseDateFilter(c *gin.Context) (rollup.DateFilter, error) {
	f := rollup.DateFilter{Kind: rollup.FilterKind(c.DefaultQuery("date_filter", "all"))}

	if s := c.Query("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil {
			return f, err
		}
		f.Month = m
	}
	if s := c.Query("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return f, err
		}
		f.Year = y
	}
	if s := c.Query("start_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			return f, err
		}
		f.Start = t
	}
	if s := c.Query("end_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.Local)
		if err != nil {
			return f, err
		}
		f.End = t
	}
	return f, nil
}

// GetRevenueOrdersHandler — сводка выручки с разбивкой по узлам.
// scope_level задаёт уровень детализации, parent_id сужает область
// (проваливание вниз по иерархии).
func GetRevenueOrdersHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	level := rollup.Level(c.DefaultQuery("scope_level", "all"))
	parentID := c.Query("parent_id")

	f, err := parseDateFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date parameters: " + err.Error()})
		return
	}

	result, err := engine.Aggregate(p, level, parentID, f)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// GetUserStatsHandler — счётчики пользователей по ролям в области
func GetUserStatsHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	stats, err := engine.UserStats(p, c.Query("parent_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}
