package scanner

import (
	"strings"

	"scanmaster/internal/model/basemodel"
)

// Tool 扫描工具配置实体
// 扫描期间只读：Dispatcher读取time_limit计算任务deadline，解析层按ToolCmd精确匹配handler
// Cmd 为shell命令模板，支持 <ip>/<IP>/<domain>/<DOMAIN> 占位符；无占位符时host追加到命令末尾
type Tool struct {
	basemodel.BaseModel

	Name      string `json:"name" gorm:"not null;size:100;comment:工具名称"`
	ToolCmd   string `json:"tool_cmd" gorm:"uniqueIndex;not null;size:255;comment:工具命令标识(含参数,handler路由键)"`
	Cmd       string `json:"cmd" gorm:"not null;size:512;comment:shell命令模板"`
	TimeLimit int    `json:"time_limit" gorm:"not null;default:60;comment:单次执行时间上限(秒)"`
	Tier      int    `json:"tier" gorm:"default:0;comment:订阅等级门槛"`
	Sudo      bool   `json:"sudo" gorm:"default:false;comment:是否需要sudo执行"`
	Deleted   bool   `json:"deleted" gorm:"index;default:false;comment:软删除标记"`
}

// TableName 定义表名
func (Tool) TableName() string {
	return "scan_tools"
}

// 命令模板中支持的host占位符
var hostPlaceholders = []string{"<ip>", "<IP>", "<domain>", "<DOMAIN>"}

// BuildCommand 将host代入命令模板
// 模板含占位符时逐个替换；否则把host追加到命令末尾
func (t *Tool) BuildCommand(host string) string {
	cmd := t.Cmd
	replaced := false
	for _, ph := range hostPlaceholders {
		if strings.Contains(cmd, ph) {
			cmd = strings.ReplaceAll(cmd, ph, host)
			replaced = true
		}
	}
	if !replaced {
		cmd = cmd + " " + host
	}
	return cmd
}
