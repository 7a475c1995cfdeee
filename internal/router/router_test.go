package router

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ashwinyue/questbank/internal/config"
	"github.com/ashwinyue/questbank/internal/handler"
	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
	"github.com/ashwinyue/questbank/internal/service"
	"github.com/ashwinyue/questbank/internal/testutil"
)

type tagResponse struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Kind    string    `json:"kind"`
	Data    model.Tag `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *model.Discipline) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load("")
	require.NoError(t, err)

	db := testutil.NewTestDB(t)
	mat := testutil.CreateDiscipline(t, db, "MAT", 1)

	svc := service.NewServices(repository.NewRepositories(db), cfg, nil, zap.NewNop())
	return SetupRouter(handler.NewHandlers(svc), zap.NewNop()), mat
}

func createContent(t *testing.T, r *gin.Engine, body gin.H) tagResponse {
	t.Helper()
	w := testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/content", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp tagResponse
	testutil.DecodeJSON(t, w, &resp)
	return resp
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t)

	w := testutil.PerformRequest(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestTagLifecycleOverHTTP(t *testing.T) {
	r, mat := setupRouter(t)

	algebra := createContent(t, r, gin.H{"name": "algebra", "discipline_id": mat.ID}).Data
	assert.Equal(t, "1.1", algebra.Code)
	assert.Equal(t, "ALGEBRA", algebra.Name)

	eq := createContent(t, r, gin.H{"name": "equations", "parent_id": algebra.ID}).Data
	assert.Equal(t, "1.1.1", eq.Code)

	// 名称重复
	w := testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/content",
		gin.H{"name": "Equations", "parent_id": algebra.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 缺少名称
	w = testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/content", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 存在启用的子标签
	w = testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/"+algebra.ID+"/inactivate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var errResp tagResponse
	testutil.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "constraint", errResp.Kind)

	w = testutil.PerformRequest(t, r, http.MethodDelete, "/api/v1/tags/"+eq.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	fn := createContent(t, r, gin.H{"name": "functions", "parent_id": algebra.ID}).Data
	assert.Equal(t, "1.1.2", fn.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/"+fn.ID+"/path", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pathResp struct {
		Data struct {
			Path string `json:"path"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, w, &pathResp)
	assert.Equal(t, "ALGEBRA > FUNCTIONS", pathResp.Data.Path)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/inactive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inactive struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, w, &inactive)
	assert.Equal(t, 1, inactive.Data.Total)

	w = testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/"+eq.ID+"/reactivate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodPut, "/api/v1/tags/"+eq.ID, gin.H{"name": "linear equations"})
	require.Equal(t, http.StatusOK, w.Code)
	var renamed tagResponse
	testutil.DecodeJSON(t, w, &renamed)
	assert.Equal(t, "LINEAR EQUATIONS", renamed.Data.Name)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/code/1.1.1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/events?tag_id="+eq.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events struct {
		Data struct {
			Events []struct {
				EventType string `json:"event_type"`
			} `json:"events"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, w, &events)
	var types []string
	for _, e := range events.Data.Events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{"tag.renamed", "tag.reactivated", "tag.deleted", "tag.created"}, types)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/events?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExamSourceOverHTTP(t *testing.T) {
	r, _ := setupRouter(t)

	w := testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/exam-sources", gin.H{"name": "enem"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var enem tagResponse
	testutil.DecodeJSON(t, w, &enem)
	assert.Equal(t, "V1", enem.Data.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/"+enem.Data.ID+"/can-have-children", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var can struct {
		Data struct {
			CanHaveChildren bool `json:"can_have_children"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, w, &can)
	assert.False(t, can.Data.CanHaveChildren)

	w = testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/content",
		gin.H{"name": "x", "parent_id": enem.Data.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/exam-sources",
		gin.H{"name": "enem 2020", "parent_id": enem.Data.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/tags/grade-levels", gin.H{"name": "first year"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestTreeAndExport(t *testing.T) {
	r, mat := setupRouter(t)

	algebra := createContent(t, r, gin.H{"name": "algebra", "discipline_id": mat.ID}).Data
	createContent(t, r, gin.H{"name": "functions", "parent_id": algebra.ID})

	w := testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/tree/content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tree struct {
		Data []struct {
			Name     string `json:"name"`
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, w, &tree)
	require.Len(t, tree.Data, 1)
	require.Len(t, tree.Data[0].Children, 1)
	assert.Equal(t, "FUNCTIONS", tree.Data[0].Children[0].Name)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags?depth=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/tags/export", nil)
	require.Equal(t, http.StatusOK, w.Code)

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Taxonomy")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "MAT", rows[1][4])
}

func TestQuestionTagsOverHTTP(t *testing.T) {
	r, mat := setupRouter(t)

	algebra := createContent(t, r, gin.H{"name": "algebra", "discipline_id": mat.ID}).Data

	w := testutil.PerformRequest(t, r, http.MethodPut, "/api/v1/questions/q1/tags", gin.H{"tag_ids": []string{algebra.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.PerformRequest(t, r, http.MethodDelete, "/api/v1/tags/"+algebra.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "linked tags cannot be deleted")
}

func TestDisciplinesOverHTTP(t *testing.T) {
	r, mat := setupRouter(t)

	w := testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/disciplines", gin.H{"code": "fis", "name": "Fisica", "rank": 2})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.PerformRequest(t, r, http.MethodPost, "/api/v1/disciplines", gin.H{"code": "MAT", "name": "Again", "rank": 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/disciplines/"+mat.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/v1/disciplines", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []model.Discipline `json:"data"`
	}
	testutil.DecodeJSON(t, w, &list)
	assert.Len(t, list.Data, 2)
}
