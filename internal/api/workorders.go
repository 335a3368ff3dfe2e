package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/inventory"
	"github.com/primefragrance/cmms/internal/photo"
	"github.com/primefragrance/cmms/internal/report"
	"github.com/primefragrance/cmms/internal/workorder"
	"go.uber.org/zap"
)

// savePhotos stores the files uploaded under "photos".
func (s *server) savePhotos(c *gin.Context) ([]string, error) {
	files, err := formFiles(c, "photos")
	if err != nil {
		return nil, err
	}
	return s.storeFiles(c.Request.Context(), files)
}

func (s *server) storeFiles(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	refs, err := photo.SaveAll(ctx, s.Photos, files, s.log)
	if err != nil {
		s.discard(ctx, refs)
		return nil, err
	}
	return refs, nil
}

// discard removes photos saved for a request that then failed.
func (s *server) discard(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.Photos.Delete(ctx, ref); err != nil {
			s.log.Warn("orphan photo", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func (s *server) createWorkOrder(c *gin.Context) {
	ctx := c.Request.Context()
	var req workorder.CreateRequest
	if isMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			s.invalid(c, err)
			return
		}
		req.Components = splitList(c.PostFormArray("components"))
		refs, err := s.savePhotos(c)
		if err != nil {
			s.fail(c, err)
			return
		}
		req.Photos = refs
	} else if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, err)
		return
	}

	wo, err := s.WorkOrders.Create(ctx, principal(c), req)
	if err != nil {
		s.discard(ctx, req.Photos)
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Permintaan WO berhasil dibuat",
		"wo_id":       wo.ID,
		"photo_count": len(req.Photos),
	})
}

func (s *server) uploadPhotos(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	files, err := formFiles(c, "photos")
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.fail(c, err)
		return
	}
	if len(files) == 0 {
		s.fail(c, apperr.New(apperr.Validation, "Tidak ada file yang diupload"))
		return
	}
	if _, err := s.WorkOrders.Get(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	refs, err := s.storeFiles(ctx, files)
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.WorkOrders.AttachPhotos(ctx, principal(c), id, refs); err != nil {
		s.discard(ctx, refs)
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    fmt.Sprintf("%d foto berhasil diupload", len(refs)),
		"photo_urls": refs,
	})
}

func (s *server) listWorkOrders(c *gin.Context) {
	wos, err := s.WorkOrders.List(c.Request.Context(), principal(c), c.Query("status"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wos)
}

func (s *server) newWorkOrders(c *gin.Context) {
	wos, err := s.WorkOrders.New(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wos)
}

func (s *server) assignedWorkOrders(c *gin.Context) {
	wos, err := s.WorkOrders.Assigned(c.Request.Context(), principal(c).Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wos)
}

func (s *server) completedWorkOrders(c *gin.Context) {
	wos, err := s.WorkOrders.AwaitingVerification(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wos)
}

func (s *server) getWorkOrder(c *gin.Context) {
	wo, err := s.WorkOrders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wo)
}

func (s *server) workOrderEvents(c *gin.Context) {
	events, err := s.WorkOrders.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

type assignRequest struct {
	Technician string `json:"technician" form:"technician"`
}

func (s *server) assignWorkOrder(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBind(&req); err != nil {
		s.invalid(c, err)
		return
	}
	wo, err := s.WorkOrders.Assign(c.Request.Context(), principal(c), c.Param("id"), req.Technician)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("WO berhasil dialokasikan ke %s", wo.Technician),
		"status":  wo.Status,
	})
}

func (s *server) startWorkOrder(c *gin.Context) {
	wo, err := s.WorkOrders.Start(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "WO berhasil dimulai", "status": wo.Status})
}

// completeForm reads a completion report sent as multipart form fields.
// parts_used arrives as a JSON string.
func (s *server) completeForm(c *gin.Context, req *workorder.CompleteRequest) error {
	req.Notes = c.PostForm("notes")
	req.RootCause = c.PostForm("root_cause")
	req.ComponentFailed = c.PostForm("component_failed")
	if raw := c.PostForm("parts_used"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.PartsUsed); err != nil {
			return apperr.Wrap(apperr.Validation, err, "Format parts_used tidak valid")
		}
	}
	refs, err := s.savePhotos(c)
	if err != nil {
		return err
	}
	req.Photos = refs
	return nil
}

func (s *server) completeWorkOrder(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	var req workorder.CompleteRequest
	if isMultipart(c) {
		if err := s.completeForm(c, &req); err != nil {
			s.fail(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.invalid(c, err)
		return
	}

	if _, err := s.WorkOrders.Complete(ctx, principal(c), id, req); err != nil {
		s.discard(ctx, req.Photos)
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("WO %s berhasil diselesaikan. Menunggu verifikasi.", id),
	})
}

func (s *server) verifyWorkOrder(c *gin.Context) {
	id := c.Param("id")
	wo, err := s.WorkOrders.Verify(c.Request.Context(), principal(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("WO %s berhasil diverifikasi dan ditutup", id),
		"status":  wo.Status,
	})
}

func (s *server) history(c *gin.Context) {
	rows, err := s.WorkOrders.History(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *server) historyExport(c *gin.Context) {
	rows, err := s.WorkOrders.History(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteHistory(&buf, rows); err != nil {
		s.fail(c, err)
		return
	}
	name := fmt.Sprintf("riwayat-wo-%s.xlsx", s.Now().In(s.loc()).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

func (s *server) operatorStats(c *gin.Context) {
	stats, err := s.WorkOrders.OperatorStats(c.Request.Context(), principal(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *server) technicianStats(c *gin.Context) {
	stats, err := s.WorkOrders.TechnicianStats(c.Request.Context(), principal(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *server) supervisorStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := s.WorkOrders.SupervisorStats(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	if stats.LowStockItems, err = inventory.CountLow(ctx, s.DB); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *server) servePhoto(c *gin.Context) {
	ref := c.Param("filename")
	rc, err := s.Photos.Open(c.Request.Context(), ref)
	if errors.Is(err, photo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "File tidak ditemukan"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	defer rc.Close()
	contentType := mime.TypeByExtension(filepath.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
