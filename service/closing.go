package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// ClosingState 成交流程状态
type ClosingState string

const (
	ClosingCollecting ClosingState = "collecting"
	ClosingConfirming ClosingState = "confirming"
	ClosingCommitting ClosingState = "committing"
	ClosingCommitted  ClosingState = "committed"
	ClosingFailed     ClosingState = "failed"
	ClosingCancelled  ClosingState = "cancelled"
)

// MissingPipelineMessage 未选择管道时的提示
const MissingPipelineMessage = "Please select a pipeline before saving the bill."

// ClosingForm 成交表单
type ClosingForm struct {
	BatchCodesByProduct map[string][]string `json:"batchCodesByProduct"`
	SelectedPipelineID  string              `json:"selectedPipelineId"`
	WaitingNumber       string              `json:"waitingNumber"`
	JobCardNumber       string              `json:"jobCardNumber"`
}

// StageTarget 成交后询价单所在的阶段，ID 仅在自定义管道中设置
type StageTarget struct {
	ID   string
	Name string
}

// ClosingWorkflow 询价单拖入成交列后的收集、确认和提交流程
//
// 提交的每一步都以账单ID派生的操作标识做幂等检查，失败后 Retry 使用同一个
// 账单ID，已完成的步骤会被跳过。
type ClosingWorkflow struct {
	mu sync.Mutex

	id       string
	billID   string
	store    repository.Store
	operator Operator
	enquiry  models.Enquiry
	move     Move
	target   StageTarget

	form         ClosingForm
	pipelineID   string
	pipelineName string
	state        ClosingState
	lastErr      error

	createdAt time.Time
	updatedAt time.Time
	now       func() time.Time
}

// ClosingSnapshot 成交流程的只读视图
type ClosingSnapshot struct {
	ID           string                           `json:"id"`
	BillID       string                           `json:"billId"`
	EnquiryID    string                           `json:"enquiryId"`
	EnquiryName  string                           `json:"enquiryName"`
	State        ClosingState                     `json:"state"`
	Form         ClosingForm                      `json:"form"`
	PipelineName string                           `json:"pipelineName,omitempty"`
	Error        string                           `json:"error,omitempty"`
	Move         Move                             `json:"move"`
	Products     map[string]models.EnquiryProduct `json:"products"`
	CreatedAt    time.Time                        `json:"createdAt"`
	UpdatedAt    time.Time                        `json:"updatedAt"`
}

// NewClosingWorkflow 创建处于 Collecting 状态的成交流程
func NewClosingWorkflow(store repository.Store, enquiry models.Enquiry, m Move, target StageTarget, op Operator) *ClosingWorkflow {
	now := time.Now()
	return &ClosingWorkflow{
		id:        uuid.NewString(),
		billID:    uuid.NewString(),
		store:     store,
		operator:  op,
		enquiry:   enquiry,
		move:      m,
		target:    target,
		state:     ClosingCollecting,
		createdAt: now,
		updatedAt: now,
		now:       time.Now,
	}
}

func (w *ClosingWorkflow) ID() string { return w.id }

func (w *ClosingWorkflow) BillID() string { return w.billID }

func (w *ClosingWorkflow) EnquiryID() string { return w.enquiry.ID }

func (w *ClosingWorkflow) Move() Move { return w.move }

// State 当前状态
func (w *ClosingWorkflow) State() ClosingState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err 最近一次提交失败的错误
func (w *ClosingWorkflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Enquiry 流程持有的询价单，提交成功后反映成交后的阶段和版本
func (w *ClosingWorkflow) Enquiry() models.Enquiry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enquiry
}

// UpdatedAt 最近一次状态变化时间
func (w *ClosingWorkflow) UpdatedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

// Snapshot 返回当前状态的副本
func (w *ClosingWorkflow) Snapshot() ClosingSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := ClosingSnapshot{
		ID:           w.id,
		BillID:       w.billID,
		EnquiryID:    w.enquiry.ID,
		EnquiryName:  w.enquiry.Name,
		State:        w.state,
		Form:         w.form,
		PipelineName: w.pipelineName,
		Move:         w.move,
		Products:     w.enquiry.Products,
		CreatedAt:    w.createdAt,
		UpdatedAt:    w.updatedAt,
	}
	if w.lastErr != nil {
		s.Error = w.lastErr.Error()
	}
	return s
}

func (w *ClosingWorkflow) setState(s ClosingState) {
	w.state = s
	w.updatedAt = w.now()
}

// Submit 提交表单，校验通过后进入 Confirming
func (w *ClosingWorkflow) Submit(form ClosingForm) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != ClosingCollecting && w.state != ClosingConfirming {
		return validationError("提交成交表单", fmt.Sprintf("当前状态 %s 不允许提交表单", w.state))
	}

	pipelineID := form.SelectedPipelineID
	if pipelineID == models.AllPipelinesID {
		pipelineID = ""
	}
	if pipelineID == "" {
		pipelineID = w.enquiry.PipelineID
	}
	if pipelineID == "" {
		w.setState(ClosingCollecting)
		return validationError("提交成交表单", MissingPipelineMessage)
	}

	for productID, codes := range form.BatchCodesByProduct {
		product, ok := w.enquiry.Products[productID]
		if !ok {
			w.setState(ClosingCollecting)
			return validationError("提交成交表单", fmt.Sprintf("产品 %s 不在询价单中", productID))
		}
		if len(codes) > product.Quantity {
			w.setState(ClosingCollecting)
			return validationError("提交成交表单",
				fmt.Sprintf("产品 %s 的批次数量 %d 超过购买数量 %d", productID, len(codes), product.Quantity))
		}
	}

	w.form = form
	w.pipelineID = pipelineID
	w.setState(ClosingConfirming)
	return nil
}

// Confirm 用户确认结果，否则回到 Collecting；确认后依次执行提交步骤
func (w *ClosingWorkflow) Confirm(ctx context.Context, confirmed bool) error {
	w.mu.Lock()
	if w.state != ClosingConfirming {
		state := w.state
		w.mu.Unlock()
		return validationError("确认成交", fmt.Sprintf("当前状态 %s 不允许确认", state))
	}
	if !confirmed {
		w.setState(ClosingCollecting)
		w.mu.Unlock()
		return nil
	}
	w.setState(ClosingCommitting)
	w.mu.Unlock()

	return w.run(ctx)
}

// Retry 以同一个账单ID重新执行失败的提交
func (w *ClosingWorkflow) Retry(ctx context.Context) error {
	w.mu.Lock()
	if w.state != ClosingFailed {
		state := w.state
		w.mu.Unlock()
		return validationError("重试成交", fmt.Sprintf("当前状态 %s 不允许重试", state))
	}
	w.lastErr = nil
	w.setState(ClosingCommitting)
	w.mu.Unlock()

	return w.run(ctx)
}

// Cancel 在提交开始前取消，调用方负责撤销看板上的移动
func (w *ClosingWorkflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != ClosingCollecting && w.state != ClosingConfirming {
		return validationError("取消成交", fmt.Sprintf("当前状态 %s 不允许取消", w.state))
	}
	w.setState(ClosingCancelled)
	return nil
}

func (w *ClosingWorkflow) run(ctx context.Context) error {
	err := w.commit(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.lastErr = err
		w.setState(ClosingFailed)
		utils.LogError2("成交提交失败", err, map[string]interface{}{
			"closingId": w.id,
			"billId":    w.billID,
			"enquiryId": w.enquiry.ID,
		})
		return err
	}
	w.setState(ClosingCommitted)
	utils.LogInfo(map[string]interface{}{
		"closingId": w.id,
		"billId":    w.billID,
		"enquiryId": w.enquiry.ID,
	}, "成交提交完成")
	return nil
}

// productIDs 按固定顺序遍历，保证重试时的操作标识一致
func (w *ClosingWorkflow) productIDs() []string {
	ids := make([]string, 0, len(w.enquiry.Products))
	for id := range w.enquiry.Products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *ClosingWorkflow) batchCode(productID string, unit int) string {
	codes := w.form.BatchCodesByProduct[productID]
	if unit < len(codes) {
		return codes[unit]
	}
	return ""
}

func stockOperationKey(billID, productID string, unit int) string {
	return fmt.Sprintf("%s:stock:%s:%d", billID, productID, unit)
}

func soldOperationKey(billID, productID string, unit int) string {
	return fmt.Sprintf("%s:sold:%s:%d", billID, productID, unit)
}

func (w *ClosingWorkflow) exists(ctx context.Context, collection, field, value string) func() (bool, error) {
	return func() (bool, error) {
		n, err := w.store.Count(ctx, collection, []repository.Filter{repository.Eq(field, value)})
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// commit 严格按顺序执行：扣减库存、写账单、写销售流水、更新询价单
func (w *ClosingWorkflow) commit(ctx context.Context) error {
	if err := w.checkEnquiryUnchanged(ctx); err != nil {
		return err
	}
	if err := w.resolvePipelineName(ctx); err != nil {
		return err
	}
	if err := w.decrementStock(ctx); err != nil {
		return err
	}
	if err := w.saveBill(ctx); err != nil {
		return err
	}
	if err := w.saveSoldProducts(ctx); err != nil {
		return err
	}
	return w.markWon(ctx)
}

func (w *ClosingWorkflow) loadEnquiry(ctx context.Context) (models.Enquiry, error) {
	var current []models.Enquiry
	err := w.store.Find(ctx, repository.EnquiriesCollection,
		[]repository.Filter{repository.Eq("id", w.enquiry.ID)}, &current)
	if err != nil {
		return models.Enquiry{}, storeError("查询询价单", err)
	}
	if len(current) == 0 {
		return models.Enquiry{}, notFoundError("查询询价单", "询价单 "+w.enquiry.ID+" 不存在")
	}
	return current[0], nil
}

// checkEnquiryUnchanged 询价单已被其他账单成交或版本已变化时拒绝提交，不写入任何数据
func (w *ClosingWorkflow) checkEnquiryUnchanged(ctx context.Context) error {
	current, err := w.loadEnquiry(ctx)
	if err != nil {
		return err
	}
	if current.WonBillID != "" && current.WonBillID == w.billID {
		return nil
	}
	if current.IsWon() {
		utils.Logger.Warn().
			Str("enquiryId", current.ID).
			Str("wonBillId", current.WonBillID).
			Str("billId", w.billID).
			Msg("询价单已由其他账单成交")
		return conflictError("成交提交", "询价单已成交，请刷新后重试")
	}
	if current.Version != w.enquiry.Version {
		return conflictError("成交提交", "询价单已被其他用户修改，请刷新后重试")
	}
	return nil
}

func (w *ClosingWorkflow) resolvePipelineName(ctx context.Context) error {
	if w.pipelineName != "" {
		return nil
	}
	var pipelines []models.Pipeline
	err := w.store.Find(ctx, repository.PipelinesCollection,
		[]repository.Filter{repository.Eq("pipeline_id", w.pipelineID)}, &pipelines)
	if err != nil {
		return storeError("查询管道", err)
	}
	name := w.pipelineID
	if len(pipelines) == 0 {
		utils.Logger.Warn().Str("pipelineId", w.pipelineID).Msg("管道不存在，账单使用管道ID")
	} else {
		name = pipelines[0].PipelineName
	}

	w.mu.Lock()
	w.pipelineName = name
	w.mu.Unlock()
	return nil
}

func (w *ClosingWorkflow) decrementStock(ctx context.Context) error {
	for _, productID := range w.productIDs() {
		product := w.enquiry.Products[productID]
		for unit := 0; unit < product.Quantity; unit++ {
			key := stockOperationKey(w.billID, productID, unit)
			code := w.batchCode(productID, unit)

			_, err := utils.ExecuteIdempotentStep(
				w.exists(ctx, repository.InventoryRecordsCollection, "operationId", key),
				func() error {
					if err := w.decrementUnit(ctx, key, productID, code); err != nil {
						return err
					}
					return w.store.Insert(ctx, repository.InventoryRecordsCollection, models.InventoryRecord{
						ProductID:     productID,
						BatchCode:     code,
						OperationType: models.InventoryOperationOut,
						Quantity:      1,
						Remark:        "成交出库 " + w.billID,
						Operator:      w.operator.Name,
						OperatorID:    w.operator.ID,
						OperationTime: w.now(),
						OperationID:   key,
					})
				},
				0,
			)
			if err != nil {
				return storeError("扣减库存", err)
			}
			utils.LogInventoryOperation("成交出库", productID, 1, true)
		}
	}
	return nil
}

// decrementUnit 扣减产品汇总库存一件；选了批次时同时消耗该批次一件，最后一件删除批次
func (w *ClosingWorkflow) decrementUnit(ctx context.Context, key, productID, code string) error {
	matched, err := w.store.Decrement(ctx, repository.ProductsCollection,
		[]repository.Filter{repository.Eq("product_id", productID)}, "current_stock", 1)
	if err != nil {
		return err
	}
	if matched == 0 {
		utils.LogInconsistency(key, productID, "产品不存在")
	}
	if code == "" {
		return nil
	}

	var batches []models.Batch
	err = w.store.Find(ctx, repository.BatchesCollection, []repository.Filter{
		repository.Eq("product_id", productID),
		repository.Eq("batch_code", code),
	}, &batches)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		utils.LogInconsistency(key, code, "批次不存在")
		return nil
	}

	batch := batches[0]
	match := []repository.Filter{repository.Eq("batch_id", batch.BatchID)}
	if batch.CurrentStock > 1 {
		_, err = w.store.Decrement(ctx, repository.BatchesCollection, match, "current_stock", 1)
		return err
	}
	_, err = w.store.Delete(ctx, repository.BatchesCollection, match)
	return err
}

func (w *ClosingWorkflow) saveBill(ctx context.Context) error {
	var lines []models.BillLine
	total := decimal.Zero
	for _, productID := range w.productIDs() {
		p := w.enquiry.Products[productID]
		lines = append(lines, models.BillLine{
			ProductID:   productID,
			ProductName: p.ProductName,
			Price:       p.Price,
			Quantity:    p.Quantity,
			BatchCodes:  w.form.BatchCodesByProduct[productID],
		})
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	billTotal, _ := total.Round(2).Float64()

	bill := models.PrintedBill{
		BillID:        w.billID,
		CustomerID:    w.enquiry.ID,
		CustomerName:  w.enquiry.Name,
		MobileNumber:  w.enquiry.MobileNumber,
		WaitingNumber: w.form.WaitingNumber,
		JobCardNumber: w.form.JobCardNumber,
		Products:      lines,
		Total:         billTotal,
		Invoiced:      w.enquiry.Invoiced,
		Collected:     w.enquiry.Collected,
		PipelineName:  w.pipelineName,
		CreatedBy:     w.operator.ID,
		CreatedAt:     w.now(),
	}

	_, err := utils.ExecuteIdempotentStep(
		w.exists(ctx, repository.PrintedBillsCollection, "bill_id", w.billID),
		func() error {
			return w.store.Insert(ctx, repository.PrintedBillsCollection, bill)
		},
		0,
	)
	if err != nil {
		return storeError("保存账单", err)
	}
	return nil
}

func (w *ClosingWorkflow) saveSoldProducts(ctx context.Context) error {
	for _, productID := range w.productIDs() {
		p := w.enquiry.Products[productID]
		for unit := 0; unit < p.Quantity; unit++ {
			key := soldOperationKey(w.billID, productID, unit)
			row := models.SoldProduct{
				BillID:        w.billID,
				OperationID:   key,
				CustomerID:    w.enquiry.ID,
				CustomerName:  w.enquiry.Name,
				SalesflowCode: w.enquiry.SalesflowCode,
				ProductID:     productID,
				ProductName:   p.ProductName,
				Quantity:      1,
				Price:         p.Price,
				BatchCode:     w.batchCode(productID, unit),
				SoldAt:        w.now(),
			}
			_, err := utils.ExecuteIdempotentStep(
				w.exists(ctx, repository.SoldProductsCollection, "operation_id", key),
				func() error {
					return w.store.Insert(ctx, repository.SoldProductsCollection, row)
				},
				0,
			)
			if err != nil {
				return storeError("保存销售流水", err)
			}
		}
	}
	return nil
}

func (w *ClosingWorkflow) markWon(ctx context.Context) error {
	now := w.now()
	nextVersion := w.enquiry.Version + 1

	patch := map[string]interface{}{
		"stage":       w.target.Name,
		"version":     nextVersion,
		"won_bill_id": w.billID,
		"updated_at":  now,
	}
	if w.target.ID != "" {
		patch["current_stage_id"] = w.target.ID
	}
	wonDate := w.enquiry.WonDate
	if wonDate == nil {
		wonDate = &now
		patch["won_date"] = now
	}

	var matched int64
	_, err := utils.ExecuteIdempotentStep(
		func() (bool, error) {
			current, err := w.loadEnquiry(ctx)
			if err != nil {
				return false, err
			}
			// 上次提交已写入但未确认
			done := current.WonBillID == w.billID
			if done {
				wonDate = current.WonDate
				nextVersion = current.Version
				matched = 1
			}
			return done, nil
		},
		func() error {
			var err error
			matched, err = w.store.Update(ctx, repository.EnquiriesCollection, patch, []repository.Filter{
				repository.Eq("id", w.enquiry.ID),
				versionMatch(w.enquiry.Version),
			})
			return err
		},
		0,
	)
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return storeError("更新询价单", err)
	}
	if matched == 0 {
		return conflictError("更新询价单", "询价单已被其他用户修改，请刷新后重试")
	}

	w.mu.Lock()
	w.enquiry.Stage = w.target.Name
	if w.target.ID != "" {
		w.enquiry.CurrentStageID = w.target.ID
	}
	w.enquiry.Version = nextVersion
	w.enquiry.WonDate = wonDate
	w.enquiry.WonBillID = w.billID
	w.enquiry.UpdatedAt = now
	w.mu.Unlock()
	return nil
}
