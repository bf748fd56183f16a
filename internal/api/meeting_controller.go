package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/meeting-gin/internal/auth"
	"github.com/mautops/meeting-gin/internal/repository"
	"github.com/mautops/meeting-gin/internal/service"
	"github.com/mautops/meeting-gin/internal/workflow"
)

// MeetingController 会议申请控制器
type MeetingController struct {
	meetingService  service.MeetingService
	approvalService service.ApprovalService
	queryService    service.QueryService
}

// NewMeetingController 创建会议申请控制器
func NewMeetingController(
	meetingService service.MeetingService,
	approvalService service.ApprovalService,
	queryService service.QueryService,
) *MeetingController {
	return &MeetingController{
		meetingService:  meetingService,
		approvalService: approvalService,
		queryService:    queryService,
	}
}

// requestContext 将认证中间件写入 gin 上下文的身份信息带入请求上下文
// 服务层和审计日志从这里读取
func requestContext(ctx *gin.Context) context.Context {
	rc := ctx.Request.Context()
	rc = context.WithValue(rc, "user_id", ctx.GetString("user_id"))
	rc = context.WithValue(rc, "roles", auth.RolesFromContext(ctx))
	rc = context.WithValue(rc, "request_id", ctx.GetString("request_id"))
	rc = context.WithValue(rc, "ip", ctx.ClientIP())
	rc = context.WithValue(rc, "user_agent", ctx.Request.UserAgent())
	return rc
}

// Create 创建会议申请
// @Summary      创建会议申请
// @Description  提交第一阶段字段,申请进入待审批状态。request_id 保证重试不产生重复记录
// @Tags         会议申请
// @Accept       json
// @Produce      json
// @Param        request body service.CreateMeetingRequest true "会议申请信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings [post]
// @Security     BearerAuth
func (c *MeetingController) Create(ctx *gin.Context) {
	var req service.CreateMeetingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	meeting, err := c.meetingService.Create(requestContext(ctx), &req)
	if err != nil {
		ServiceError(ctx, err, "create meeting")
		return
	}

	Created(ctx, meeting)
}

// List 查询会议申请列表
// @Summary      查询会议申请列表
// @Description  审批角色可按过滤器查询全部申请,其他用户只能看到自己的申请
// @Tags         会议申请
// @Produce      json
// @Param        status     query string false "状态过滤" Enums(pending, approved, rejected, completed)
// @Param        date_from  query string false "会议日期下限(YYYY-MM-DD)"
// @Param        date_to    query string false "会议日期上限(YYYY-MM-DD)"
// @Success      200  {object}  ListResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings [get]
// @Security     BearerAuth
func (c *MeetingController) List(ctx *gin.Context) {
	filter := &repository.MeetingFilter{}

	if status := ctx.Query("status"); status != "" {
		if !workflow.ValidStatus(status) {
			Error(ctx, http.StatusBadRequest, "invalid status filter", status)
			return
		}
		filter.Status = &status
	}
	if dateFrom := ctx.Query("date_from"); dateFrom != "" {
		filter.DateFrom = &dateFrom
	}
	if dateTo := ctx.Query("date_to"); dateTo != "" {
		filter.DateTo = &dateTo
	}

	// 非审批角色只能看到自己的申请
	if !workflow.HasApproverRole(auth.RolesFromContext(ctx)) {
		userID := auth.UserIDFromContext(ctx)
		filter.CreatedBy = &userID
	}

	views, err := c.queryService.List(filter)
	if err != nil {
		ServiceError(ctx, err, "list meetings")
		return
	}

	List(ctx, views, len(views), false)
}

// ListPending 查询待审批列表
// @Summary      查询待审批列表
// @Description  审批人的待办列表。数据库不可用时返回最近一次快照,响应中 stale 为 true
// @Tags         审批
// @Produce      json
// @Success      200  {object}  ListResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/pending [get]
// @Security     BearerAuth
func (c *MeetingController) ListPending(ctx *gin.Context) {
	views, stale, err := c.queryService.Pending()
	if err != nil {
		ServiceError(ctx, err, "list pending meetings")
		return
	}

	List(ctx, views, len(views), stale)
}

// Get 获取会议申请详情
// @Summary      获取会议申请详情
// @Description  第二阶段字段仅在审批通过后出现,completed 为读取时派生状态
// @Tags         会议申请
// @Produce      json
// @Param        id path string true "会议申请 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/{id} [get]
// @Security     BearerAuth
func (c *MeetingController) Get(ctx *gin.Context) {
	view, err := c.queryService.Get(ctx.Param("id"))
	if err != nil {
		ServiceError(ctx, err, "get meeting")
		return
	}

	Success(ctx, view)
}

// UpdateLogistics 填写第二阶段后勤信息
// @Summary      填写后勤信息
// @Description  仅审批通过且未过期的申请可填写,expenses 由服务端按距离与出行方式计算
// @Tags         会议申请
// @Accept       json
// @Produce      json
// @Param        id path string true "会议申请 ID"
// @Param        request body service.UpdateLogisticsRequest true "后勤信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/{id}/logistics [put]
// @Security     BearerAuth
func (c *MeetingController) UpdateLogistics(ctx *gin.Context) {
	var req service.UpdateLogisticsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	meeting, err := c.meetingService.UpdateLogistics(requestContext(ctx), ctx.Param("id"), &req)
	if err != nil {
		ServiceError(ctx, err, "update logistics")
		return
	}

	Success(ctx, meeting)
}

// Decide 审批决定
// @Summary      审批决定
// @Description  审批人同意或拒绝待审批的申请,并发决定只有一个生效
// @Tags         审批
// @Accept       json
// @Produce      json
// @Param        id path string true "会议申请 ID"
// @Param        request body service.DecideRequest true "审批决定"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/{id}/approve [post]
// @Security     BearerAuth
func (c *MeetingController) Decide(ctx *gin.Context) {
	var req service.DecideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	meeting, err := c.approvalService.Decide(requestContext(ctx), ctx.Param("id"), &req)
	if err != nil {
		ServiceError(ctx, err, "decide meeting")
		return
	}

	Success(ctx, meeting)
}

// Resubmit 重新提交被拒绝的申请
// @Summary      重新提交
// @Description  被拒绝的申请携带新的 request_id 重新提交,产生全新的审批周期
// @Tags         会议申请
// @Accept       json
// @Produce      json
// @Param        id path string true "被拒绝的会议申请 ID"
// @Param        request body service.CreateMeetingRequest true "修正后的会议申请信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/{id}/resubmit [post]
// @Security     BearerAuth
func (c *MeetingController) Resubmit(ctx *gin.Context) {
	var req service.CreateMeetingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	meeting, err := c.meetingService.Resubmit(requestContext(ctx), ctx.Param("id"), &req)
	if err != nil {
		ServiceError(ctx, err, "resubmit meeting")
		return
	}

	Created(ctx, meeting)
}

// Delete 删除会议申请
// @Summary      删除会议申请
// @Description  仅申请人可删除尚无审批结论的申请
// @Tags         会议申请
// @Produce      json
// @Param        id path string true "会议申请 ID"
// @Success      200  {object}  Response
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/{id} [delete]
// @Security     BearerAuth
func (c *MeetingController) Delete(ctx *gin.Context) {
	if err := c.meetingService.Delete(requestContext(ctx), ctx.Param("id")); err != nil {
		ServiceError(ctx, err, "delete meeting")
		return
	}

	Success(ctx, nil)
}

// Entries 查询审批记录
// @Summary      查询审批记录
// @Description  按时间顺序返回申请的全部审批记录
// @Tags         审批
// @Produce      json
// @Param        id path string true "会议申请 ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/{id}/entries [get]
// @Security     BearerAuth
func (c *MeetingController) Entries(ctx *gin.Context) {
	entries, err := c.approvalService.Entries(ctx.Param("id"))
	if err != nil {
		ServiceError(ctx, err, "list approval entries")
		return
	}

	Success(ctx, entries)
}

// History 查询状态变更历史
// @Summary      查询状态变更历史
// @Tags         会议申请
// @Produce      json
// @Param        id path string true "会议申请 ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /meetings/{id}/history [get]
// @Security     BearerAuth
func (c *MeetingController) History(ctx *gin.Context) {
	history, err := c.queryService.History(ctx.Param("id"))
	if err != nil {
		ServiceError(ctx, err, "get meeting history")
		return
	}

	Success(ctx, history)
}
