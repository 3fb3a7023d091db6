// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package scenario 定义信用管理应用的端到端验收场景。

场景按固定顺序执行十二个检查点：导航、账号登录、OTP 输入、仪表盘、
切换到支票视图、列表表头、打开创建表单、表单就绪、填写并保存、
记录可见、到期分组、金额合计。任一检查点在等待上限内未满足即中止，
中止时写入失败截图，会话在所有路径上都会被释放。

Runner 负责一次完整运行：启动浏览器会话、执行 workflow.Flow、
采集证据、写入历史与指标，并按退出策略给出进程退出码。

OTP 通过会话内的对话框拦截器捕获。第三个检查点的前置条件同时要求
OTP 输入框可见且已捕获到验证码；LegacyEmptyOTP 模式跳过后者。
进度输出中 OTP 以星号掩码显示。
*/
package scenario
