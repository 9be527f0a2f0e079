/**
 * 扫描服务层:外部工具执行器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 以外部进程方式执行扫描工具命令,捕获stdout/stderr
 * @note: 超时由调用方通过context控制;超时到期进程被杀死,没有部分成功
 */
package scanner

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandRunner 外部命令执行接口
// 生产实现走os/exec,测试注入假实现以免真的拉起扫描工具
type CommandRunner interface {
	// Run 执行一条shell命令,返回stdout与stderr文本
	// context到期时进程被杀死,err为context.DeadlineExceeded
	Run(ctx context.Context, command string) (stdout string, stderr string, err error)
}

// ExecRunner 基于os/exec的命令执行器
type ExecRunner struct{}

// NewExecRunner 创建命令执行器实例
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run 通过sh -c执行命令
func (r *ExecRunner) Run(ctx context.Context, command string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	// 超时优先于进程自身的退出错误上报
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.String(), stderr.String(), ctxErr
	}

	return stdout.String(), stderr.String(), err
}
