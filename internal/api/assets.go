package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/asset"
	"github.com/primefragrance/cmms/internal/inventory"
)

func (s *server) listAssets(c *gin.Context) {
	assets, err := asset.Summaries(c.Request.Context(), s.DB)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (s *server) assetDetails(c *gin.Context) {
	assets, err := asset.Details(c.Request.Context(), s.DB)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (s *server) assetComponents(c *gin.Context) {
	comps, err := asset.ComponentsOf(c.Request.Context(), s.DB, c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comps)
}

func (s *server) createAsset(c *gin.Context) {
	var opts asset.CreateOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	a, err := asset.Create(c.Request.Context(), s.DB, opts, principal(c).Username, s.Now().Unix())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  fmt.Sprintf("Aset %s berhasil didaftarkan", a.Name),
		"asset_id": fmt.Sprint(a.ID),
	})
}

func (s *server) listInventory(c *gin.Context) {
	items, err := inventory.List(c.Request.Context(), s.DB)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) lowStock(c *gin.Context) {
	items, err := inventory.LowStock(c.Request.Context(), s.DB)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) updateInventory(c *gin.Context) {
	var opts inventory.UpdateOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	item, err := inventory.Update(c.Request.Context(), s.DB, c.Param("id"), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Inventory berhasil diupdate", "item": item})
}
