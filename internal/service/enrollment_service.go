package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ay-digital/backend/internal/dto"
	"ay-digital/backend/internal/model"
	"ay-digital/backend/internal/repository"
)

// ── 报名模块业务错误 ──

var (
	ErrEnrollMissingFields = errors.New("All required fields must be filled")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// EnrollmentService 课程报名业务接口
type EnrollmentService interface {
	Create(ctx context.Context, req *dto.EnrollRequest) (*model.Enrollment, error)
	List(ctx context.Context) ([]model.Enrollment, error)
	// Export 导出全部报名为 Excel，返回内容与建议文件名
	Export(ctx context.Context) (*bytes.Buffer, string, error)
}

type enrollmentService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, now: time.Now, logger: logger}
}

func (s *enrollmentService) Create(ctx context.Context, req *dto.EnrollRequest) (*model.Enrollment, error) {
	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Course == "" {
		return nil, ErrEnrollMissingFields
	}

	e := &model.Enrollment{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Course:  req.Course,
		Message: req.Message,
	}
	if err := s.repo.Enrollment.Create(ctx, e); err != nil {
		s.logger.Error("保存报名失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("收到课程报名", zap.Int64("enrollment_id", e.ID), zap.String("course", e.Course))
	return e, nil
}

func (s *enrollmentService) List(ctx context.Context) ([]model.Enrollment, error) {
	list, err := s.repo.Enrollment.List(ctx)
	if err != nil {
		s.logger.Error("查询报名列表失败", zap.Error(err))
		return nil, err
	}
	return list, nil
}

// ═══════════════════════════════════════════════════════════
// Export 导出报名表
// ═══════════════════════════════════════════════════════════
//
// 单个 Sheet "Enrollments"，首行为表头，按提交时间倒序

var enrollmentColumns = []struct {
	title string
	width float64
}{
	{"ID", 8},
	{"Name", 20},
	{"Email", 28},
	{"Phone", 18},
	{"Course", 24},
	{"Message", 40},
	{"Submitted At", 20},
}

func (s *enrollmentService) Export(ctx context.Context) (*bytes.Buffer, string, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Enrollments"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, c := range enrollmentColumns {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, c.width)
		f.SetCellValue(sheetName, cell(col, 1), c.title)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(enrollmentColumns)-1), 1), headerStyle)

	for i, e := range list {
		row := i + 2
		values := []interface{}{
			e.ID,
			e.Name,
			e.Email,
			e.Phone,
			e.Course,
			e.Message,
			e.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(sheetName, cell("A", row), &values); err != nil {
			s.logger.Error("写入报名行失败", zap.Int("row", row), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("enrollments_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", strings.ToUpper(col), row)
}
