// 文件: internal/api/handlers.go
package api

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/gallery"
	"Gallery_Manager/internal/models"
	"Gallery_Manager/internal/task"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// APIHandlers 持有所有依赖
type APIHandlers struct {
	gallery     *gallery.Service
	taskManager *task.Manager
	configPath  string
}

// NewAPIHandlers 创建一个新的API处理器实例，configPath 是 PUT /config 写回的文件。
func NewAPIHandlers(g *gallery.Service, tm *task.Manager, configPath string) *APIHandlers {
	return &APIHandlers{
		gallery:     g,
		taskManager: tm,
		configPath:  configPath,
	}
}

// --- 辅助函数 ---

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

type selectionPayload struct {
	Identities []string `json:"identities"`
}

// decodeSelection 解析请求体中的标识列表并解析为当前快照里的媒体。
func (h *APIHandlers) decodeSelection(w http.ResponseWriter, r *http.Request) ([]models.MediaItem, []string, bool) {
	var payload selectionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体: "+err.Error())
		return nil, nil, false
	}
	if len(payload.Identities) == 0 {
		respondError(w, http.StatusBadRequest, "缺少 'identities' 字段")
		return nil, nil, false
	}
	items, unresolved, err := h.gallery.ResolveSelection(r.Context(), payload.Identities)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "无法读取媒体索引: "+err.Error())
		return nil, nil, false
	}
	if len(items) == 0 {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":      "选中的媒体都不在当前索引中",
			"unresolved": unresolved,
		})
		return nil, nil, false
	}
	return items, unresolved, true
}

// --- 媒体处理器 ---

// HandleListMedia 返回当前媒体索引，带 q 参数时按标题、地点和文件名过滤。
func (h *APIHandlers) HandleListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.gallery.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "无法获取媒体列表: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": len(items),
	})
}

func (h *APIHandlers) HandleRefreshMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.gallery.Refresh(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "刷新媒体索引失败: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": len(items),
	})
}

func (h *APIHandlers) HandleLayout(w http.ResponseWriter, r *http.Request) {
	width, err := strconv.Atoi(r.URL.Query().Get("width"))
	if err != nil || width <= 0 {
		respondError(w, http.StatusBadRequest, "缺少或无效的 'width' 参数")
		return
	}
	items, err := h.gallery.GetMediaIndex(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "无法获取媒体列表: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.gallery.LayoutGrid(items, width))
}

// HandleDeleteMedia 同步执行批量删除，直接返回汇总结果。
// 冲突退避可能让批次超过服务器的 WriteTimeout，因此这里取消写超时；
// 大批量选择仍建议走 /tasks/delete 轮询结果。
func (h *APIHandlers) HandleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	items, unresolved, ok := h.decodeSelection(w, r)
	if !ok {
		return
	}
	// 不支持的 ResponseWriter（如测试用的 recorder）直接忽略
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	outcome := h.gallery.RequestDeletion(r.Context(), items, nil)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"outcome":    outcome,
		"unresolved": unresolved,
	})
}

// --- 任务处理器 ---

func (h *APIHandlers) HandleStartDeleteTask(w http.ResponseWriter, r *http.Request) {
	items, unresolved, ok := h.decodeSelection(w, r)
	if !ok {
		return
	}
	taskID, err := h.taskManager.StartDeletionTask(items)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"taskId":     taskID,
		"unresolved": unresolved,
	})
}

func (h *APIHandlers) HandleGetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	status, err := h.taskManager.GetTaskStatus(taskID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// --- 配置处理器 ---

// HandleGetConfig 获取当前应用配置
func (h *APIHandlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, config.C)
}

// HandleUpdateConfig 更新并保存应用配置。新的重试与布局参数在重启后生效。
func (h *APIHandlers) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		respondError(w, http.StatusBadRequest, "无效的配置格式: "+err.Error())
		return
	}
	newConfig.ApplyDefaults()

	yamlData, err := yaml.Marshal(&newConfig)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "序列化配置为YAML失败: "+err.Error())
		return
	}
	if err := os.WriteFile(h.configPath, yamlData, 0644); err != nil {
		respondError(w, http.StatusInternalServerError, "写入配置文件失败: "+err.Error())
		return
	}

	config.C = &newConfig
	respondJSON(w, http.StatusOK, config.C)
}
